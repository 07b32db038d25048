package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"daily-sheet-service/internal/models"
)

var (
	ErrDebtorNotFound    = errors.New("debtor not found")
	ErrDebtorAlreadyPaid = errors.New("debtor already paid")
)

type DebtorRepository interface {
	Create(ctx context.Context, tx *sql.Tx, debtor *models.Debtor) error
	GetByID(ctx context.Context, id int64) (*models.Debtor, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Debtor, error)
	List(ctx context.Context, date string) ([]models.Debtor, error)
	ListPending(ctx context.Context) ([]models.Debtor, error)
	CountPending(ctx context.Context) (int, error)
	MarkPaid(ctx context.Context, tx *sql.Tx, debtor *models.Debtor) error
	NextSerial(ctx context.Context, tx *sql.Tx, date string) (int, error)
}

type debtorRepository struct {
	db *sql.DB
}

func NewDebtorRepository(db *sql.DB) DebtorRepository {
	return &debtorRepository{db: db}
}

const debtorColumns = `id, debtor_date, serial_no, party_name, salesman, bill_no, amount,
		       status, collected_on, collection_serial, notes, created_at`

func scanDebtor(row rowScanner) (*models.Debtor, error) {
	var (
		d           models.Debtor
		date        time.Time
		collectedOn sql.NullTime
		serial      sql.NullInt64
		notes       sql.NullString
	)
	err := row.Scan(
		&d.ID,
		&date,
		&d.SerialNo,
		&d.PartyName,
		&d.Salesman,
		&d.BillNo,
		&d.Amount,
		&d.Status,
		&collectedOn,
		&serial,
		&notes,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Date = date.Format(models.DateLayout)
	d.CollectedOn = formatNullDate(collectedOn)
	if serial.Valid {
		s := int(serial.Int64)
		d.CollectionSerial = &s
	}
	d.Notes = notes.String
	return &d, nil
}

func (r *debtorRepository) Create(ctx context.Context, tx *sql.Tx, debtor *models.Debtor) error {
	query := `
		INSERT INTO debtors (
			debtor_date, serial_no, party_name, salesman, bill_no, amount, status, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := tx.ExecContext(ctx, query,
		debtor.Date,
		debtor.SerialNo,
		debtor.PartyName,
		debtor.Salesman,
		debtor.BillNo,
		debtor.Amount,
		debtor.Status,
		debtor.Notes,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	debtor.ID = id
	return nil
}

func (r *debtorRepository) GetByID(ctx context.Context, id int64) (*models.Debtor, error) {
	query := `SELECT ` + debtorColumns + ` FROM debtors WHERE id = ?`
	d, err := scanDebtor(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrDebtorNotFound
	}
	return d, err
}

// GetForUpdate reads the debtor and locks its row until tx ends.
func (r *debtorRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Debtor, error) {
	query := `SELECT ` + debtorColumns + ` FROM debtors WHERE id = ? FOR UPDATE`
	d, err := scanDebtor(tx.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrDebtorNotFound
	}
	return d, err
}

// List returns the debtors recorded on date, or every debtor when date is
// empty.
func (r *debtorRepository) List(ctx context.Context, date string) ([]models.Debtor, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if date == "" {
		rows, err = r.db.QueryContext(ctx, `SELECT `+debtorColumns+` FROM debtors ORDER BY debtor_date DESC, serial_no`)
	} else {
		rows, err = r.db.QueryContext(ctx, `SELECT `+debtorColumns+` FROM debtors WHERE debtor_date = ? ORDER BY serial_no`, date)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDebtors(rows)
}

func (r *debtorRepository) ListPending(ctx context.Context) ([]models.Debtor, error) {
	query := `SELECT ` + debtorColumns + ` FROM debtors WHERE status = ? ORDER BY debtor_date, serial_no`
	rows, err := r.db.QueryContext(ctx, query, models.DebtorStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDebtors(rows)
}

func scanDebtors(rows *sql.Rows) ([]models.Debtor, error) {
	debtors := []models.Debtor{}
	for rows.Next() {
		d, err := scanDebtor(rows)
		if err != nil {
			return nil, err
		}
		debtors = append(debtors, *d)
	}
	return debtors, rows.Err()
}

func (r *debtorRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM debtors WHERE status = ?`, models.DebtorStatusPending).Scan(&count)
	return count, err
}

// MarkPaid stores the settlement recorded on debtor. The row only changes
// while it is still pending.
func (r *debtorRepository) MarkPaid(ctx context.Context, tx *sql.Tx, debtor *models.Debtor) error {
	query := `
		UPDATE debtors
		SET status = ?,
		    collected_on = ?,
		    collection_serial = ?
		WHERE id = ? AND status = ?
	`
	result, err := tx.ExecContext(ctx, query,
		models.DebtorStatusPaid,
		debtor.CollectedOn,
		debtor.CollectionSerial,
		debtor.ID,
		models.DebtorStatusPending,
	)
	if err != nil {
		return err
	}
	return expectRow(result, ErrDebtorAlreadyPaid)
}

func (r *debtorRepository) NextSerial(ctx context.Context, tx *sql.Tx, date string) (int, error) {
	var serial int
	err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(serial_no), 0) + 1 FROM debtors WHERE debtor_date = ?`, date).Scan(&serial)
	return serial, err
}
