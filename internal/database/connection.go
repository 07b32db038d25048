package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"daily-sheet-service/internal/config"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

func NewConnection(cfg *config.Config, logger logrus.FieldLogger) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		if !strings.Contains(err.Error(), "Unknown database") {
			db.Close()
			return nil, fmt.Errorf("error pinging database: %w", err)
		}

		logger.WithField("database", cfg.Database.Name).Warn("database does not exist, attempting to create it")
		db.Close()

		if err := createDatabase(cfg); err != nil {
			return nil, err
		}
		logger.WithField("database", cfg.Database.Name).Info("created database")

		db, err = sql.Open("mysql", cfg.GetDSN())
		if err != nil {
			return nil, fmt.Errorf("error connecting to new database: %w", err)
		}
		if err = db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("error verifying connection to new database: %w", err)
		}
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.WithFields(logrus.Fields{
		"host":     cfg.Database.Host,
		"database": cfg.Database.Name,
	}).Info("connected to MySQL database")
	return db, nil
}

func createDatabase(cfg *config.Config) error {
	rootDB, err := sql.Open("mysql", getRootDSN(cfg))
	if err != nil {
		return fmt.Errorf("error connecting to MySQL root: %w", err)
	}
	defer rootDB.Close()

	_, err = rootDB.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", cfg.Database.Name))
	if err != nil {
		return fmt.Errorf("error creating database: %w", err)
	}
	return nil
}

func getRootDSN(cfg *config.Config) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/?parseTime=true",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
	)
}

// IsDuplicateKey reports whether err is a MySQL unique key violation.
func IsDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
