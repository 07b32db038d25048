package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"daily-sheet-service/internal/models"
)

type CollectionRepository interface {
	Create(ctx context.Context, tx *sql.Tx, collection *models.Collection) error
	List(ctx context.Context, date string) ([]models.Collection, error)
	TotalOn(ctx context.Context, date string) (decimal.Decimal, int, error)
	NextSerial(ctx context.Context, tx *sql.Tx, date string) (int, error)
}

type collectionRepository struct {
	db *sql.DB
}

func NewCollectionRepository(db *sql.DB) CollectionRepository {
	return &collectionRepository{db: db}
}

func (r *collectionRepository) Create(ctx context.Context, tx *sql.Tx, c *models.Collection) error {
	query := `
		INSERT INTO collections (
			collection_date, serial_no, debtor_id, party_name, salesman, bill_no,
			amount, payment_mode, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := tx.ExecContext(ctx, query,
		c.Date,
		c.SerialNo,
		c.DebtorID,
		c.PartyName,
		c.Salesman,
		c.BillNo,
		c.Amount,
		c.PaymentMode,
		c.Notes,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// List returns the collections received on date, or all of them when date
// is empty.
func (r *collectionRepository) List(ctx context.Context, date string) ([]models.Collection, error) {
	const columns = `SELECT id, collection_date, serial_no, debtor_id, party_name, salesman,
		       bill_no, amount, payment_mode, notes, created_at FROM collections`
	var (
		rows *sql.Rows
		err  error
	)
	if date == "" {
		rows, err = r.db.QueryContext(ctx, columns+` ORDER BY collection_date DESC, serial_no`)
	} else {
		rows, err = r.db.QueryContext(ctx, columns+` WHERE collection_date = ? ORDER BY serial_no`, date)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	collections := []models.Collection{}
	for rows.Next() {
		var (
			c        models.Collection
			day      time.Time
			debtorID sql.NullInt64
			notes    sql.NullString
		)
		err := rows.Scan(
			&c.ID,
			&day,
			&c.SerialNo,
			&debtorID,
			&c.PartyName,
			&c.Salesman,
			&c.BillNo,
			&c.Amount,
			&c.PaymentMode,
			&notes,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		c.Date = day.Format(models.DateLayout)
		if debtorID.Valid {
			id := debtorID.Int64
			c.DebtorID = &id
		}
		c.Notes = notes.String
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

func (r *collectionRepository) TotalOn(ctx context.Context, date string) (decimal.Decimal, int, error) {
	var (
		total decimal.Decimal
		count int
	)
	query := `SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM collections WHERE collection_date = ?`
	if err := r.db.QueryRowContext(ctx, query, date).Scan(&total, &count); err != nil {
		return decimal.Zero, 0, err
	}
	return total, count, nil
}

func (r *collectionRepository) NextSerial(ctx context.Context, tx *sql.Tx, date string) (int, error) {
	var serial int
	err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(serial_no), 0) + 1 FROM collections WHERE collection_date = ?`, date).Scan(&serial)
	return serial, err
}
