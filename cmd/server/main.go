package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"

	"daily-sheet-service/internal/config"
	"daily-sheet-service/internal/database"
	"daily-sheet-service/internal/drafts"
	"daily-sheet-service/internal/handlers"
	"daily-sheet-service/internal/services"
)

const draftCleanupInterval = time.Hour

func main() {
	migrateCmd := flag.String("migrate", "", "Migration command (up/down/version)")
	steps := flag.Int("steps", 0, "Number of migration steps (0 means all)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Error loading config: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)

	db, err := database.NewConnection(cfg, logger)
	if err != nil {
		logger.Fatalf("Error connecting to database: %v", err)
	}
	defer db.Close()

	if *migrateCmd != "" {
		handleMigration(cfg, logger, *migrateCmd, *steps)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore := draftStore(ctx, cfg, logger)
	defer closeStore()

	draftService := services.NewDraftService(store, cfg.Draft.TTL, logger)
	go draftService.RunCleanup(ctx, draftCleanupInterval)

	router := handlers.SetupRouter(db, cfg, draftService, logger)

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"address":     cfg.ServerAddress,
			"environment": cfg.Environment,
		}).Info("server is running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("Server Shutdown Failed:%+v", err)
	}
	logger.Info("server exited gracefully")
}

// draftStore picks Redis when REDIS_ADDRESS is set and falls back to an
// in-process store otherwise.
func draftStore(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (drafts.Store, func()) {
	if cfg.Redis.Address == "" {
		logger.Info("draft store: memory")
		return drafts.NewMemoryStore(), func() {}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	client, err := drafts.Connect(pingCtx, cfg.Redis.Address)
	if err != nil {
		logger.Fatalf("Error connecting to redis: %v", err)
	}
	logger.WithField("address", cfg.Redis.Address).Info("draft store: redis")
	return drafts.NewRedisStore(client, cfg.Draft.TTL), func() { client.Close() }
}

func handleMigration(cfg *config.Config, logger logrus.FieldLogger, command string, steps int) {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", cfg.Migration.Dir),
		cfg.GetMigrationDBURL(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "no change") {
			logger.Info("No migration changes to apply")
			return
		}
		logger.Fatalf("Failed to initialize migrate: %v", err)
	}
	defer m.Close()

	switch command {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	case "version":
		version, dirty, verErr := m.Version()
		if verErr != nil {
			if errors.Is(verErr, migrate.ErrNilVersion) {
				logger.Info("No migrations have been applied yet")
				return
			}
			logger.Fatalf("Failed to get version: %v", verErr)
		}
		fmt.Printf("Current migration version: %d (dirty: %v)\n", version, dirty)
		return
	default:
		logger.Fatalf("Invalid migration command: %s", command)
	}

	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("No migration changes to apply")
			return
		}
		logger.Fatalf("Migration failed: %v", err)
	}

	logger.Info("Migration completed successfully")
}
