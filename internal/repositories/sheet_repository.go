package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"daily-sheet-service/internal/models"
)

var (
	ErrSheetNotFound = errors.New("sheet not found")
	ErrSheetClosed   = errors.New("sheet is already closed")
)

type SheetRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Sheet, error)
	GetByDate(ctx context.Context, date string) (*models.Sheet, error)
	Create(ctx context.Context, tx *sql.Tx, date string) (*models.Sheet, error)
	Update(ctx context.Context, tx *sql.Tx, id int64, note *string, openingCash *decimal.Decimal) error
	Close(ctx context.Context, tx *sql.Tx, id int64, closing models.Closing) error
	ListOverview(ctx context.Context) ([]models.SheetOverview, error)
	ListRange(ctx context.Context, start, end string) ([]models.SheetOverview, error)
	Overview(ctx context.Context, since time.Time) (*models.Overview, error)
}

type sheetRepository struct {
	db *sql.DB
}

func NewSheetRepository(db *sql.DB) SheetRepository {
	return &sheetRepository{db: db}
}

const sheetColumns = `id, sheet_date, sheet_note, opening_cash, closing_cash_amount,
		       system_expected_cash, difference, is_closed, closure_notes, closed_at,
		       created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSheet(row rowScanner) (*models.Sheet, error) {
	var (
		sheet    models.Sheet
		date     time.Time
		note     sql.NullString
		closing  decimal.NullDecimal
		expected decimal.NullDecimal
		diff     decimal.NullDecimal
		notes    sql.NullString
		closedAt sql.NullTime
	)
	err := row.Scan(
		&sheet.ID,
		&date,
		&note,
		&sheet.OpeningCash,
		&closing,
		&expected,
		&diff,
		&sheet.IsClosed,
		&notes,
		&closedAt,
		&sheet.CreatedAt,
		&sheet.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrSheetNotFound
	}
	if err != nil {
		return nil, err
	}

	sheet.Date = date.Format(models.DateLayout)
	sheet.Note = nullString(note)
	sheet.ClosingCashAmount = nullDecimal(closing)
	sheet.SystemExpectedCash = nullDecimal(expected)
	sheet.Difference = nullDecimal(diff)
	sheet.ClosureNotes = nullString(notes)
	if closedAt.Valid {
		t := closedAt.Time
		sheet.ClosedAt = &t
	}
	return &sheet, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func (r *sheetRepository) GetByID(ctx context.Context, id int64) (*models.Sheet, error) {
	query := `SELECT ` + sheetColumns + ` FROM daily_sheets WHERE id = ?`
	return scanSheet(r.db.QueryRowContext(ctx, query, id))
}

func (r *sheetRepository) GetByDate(ctx context.Context, date string) (*models.Sheet, error) {
	query := `SELECT ` + sheetColumns + ` FROM daily_sheets WHERE sheet_date = ?`
	return scanSheet(r.db.QueryRowContext(ctx, query, date))
}

// Create inserts an empty sheet for date. A concurrent create for the same
// date surfaces as a MySQL duplicate key error.
func (r *sheetRepository) Create(ctx context.Context, tx *sql.Tx, date string) (*models.Sheet, error) {
	query := `INSERT INTO daily_sheets (sheet_date) VALUES (?)`
	result, err := tx.ExecContext(ctx, query, date)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	query = `SELECT ` + sheetColumns + ` FROM daily_sheets WHERE id = ?`
	return scanSheet(tx.QueryRowContext(ctx, query, id))
}

// Update replaces the note and, when given, the opening cash. It does not
// report a missing sheet; callers load the sheet first.
func (r *sheetRepository) Update(ctx context.Context, tx *sql.Tx, id int64, note *string, openingCash *decimal.Decimal) error {
	var err error
	if openingCash != nil {
		query := `
			UPDATE daily_sheets
			SET sheet_note = ?,
			    opening_cash = ?,
			    updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`
		_, err = tx.ExecContext(ctx, query, note, *openingCash, id)
	} else {
		query := `
			UPDATE daily_sheets
			SET sheet_note = ?,
			    updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`
		_, err = tx.ExecContext(ctx, query, note, id)
	}
	return err
}

// Close records the closing figures. Only an open sheet can be closed.
func (r *sheetRepository) Close(ctx context.Context, tx *sql.Tx, id int64, closing models.Closing) error {
	query := `
		UPDATE daily_sheets
		SET closing_cash_amount = ?,
		    system_expected_cash = ?,
		    difference = ?,
		    is_closed = TRUE,
		    closure_notes = ?,
		    closed_at = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND is_closed = FALSE
	`
	result, err := tx.ExecContext(ctx, query,
		closing.ClosingCashAmount,
		closing.SystemExpectedCash,
		closing.Difference,
		closing.Notes,
		closing.ClosedAt,
		id,
	)
	if err != nil {
		return err
	}
	return expectRow(result, ErrSheetClosed)
}

// expectRow reports notFound when a statement touched no row.
func expectRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

const overviewQuery = `
	SELECT s.id, s.sheet_date, s.sheet_note, s.created_at, s.updated_at,
	       (SELECT COUNT(*) FROM entries e WHERE e.sheet_id = s.id) AS entry_count,
	       (SELECT COUNT(*) FROM denominations d WHERE d.sheet_id = s.id) AS denomination_count
	FROM daily_sheets s
`

func (r *sheetRepository) ListOverview(ctx context.Context) ([]models.SheetOverview, error) {
	rows, err := r.db.QueryContext(ctx, overviewQuery+` ORDER BY s.sheet_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOverviews(rows)
}

func (r *sheetRepository) ListRange(ctx context.Context, start, end string) ([]models.SheetOverview, error) {
	query := overviewQuery + ` WHERE s.sheet_date >= ? AND s.sheet_date <= ? ORDER BY s.sheet_date DESC`
	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOverviews(rows)
}

func scanOverviews(rows *sql.Rows) ([]models.SheetOverview, error) {
	sheets := []models.SheetOverview{}
	for rows.Next() {
		var (
			o    models.SheetOverview
			date time.Time
			note sql.NullString
		)
		if err := rows.Scan(&o.ID, &date, &note, &o.CreatedAt, &o.UpdatedAt, &o.EntryCount, &o.DenominationCount); err != nil {
			return nil, err
		}
		o.Date = date.Format(models.DateLayout)
		o.Note = nullString(note)
		sheets = append(sheets, o)
	}
	return sheets, rows.Err()
}

// Overview counts everything stored plus the sheets created since the given
// time and their children.
func (r *sheetRepository) Overview(ctx context.Context, since time.Time) (*models.Overview, error) {
	overview := &models.Overview{}

	query := `
		SELECT (SELECT COUNT(*) FROM daily_sheets),
		       (SELECT COUNT(*) FROM entries),
		       (SELECT COUNT(*) FROM denominations),
		       (SELECT MIN(sheet_date) FROM daily_sheets),
		       (SELECT MAX(sheet_date) FROM daily_sheets)
	`
	var earliest, latest sql.NullTime
	err := r.db.QueryRowContext(ctx, query).Scan(
		&overview.TotalSheets,
		&overview.TotalEntries,
		&overview.TotalDenominations,
		&earliest,
		&latest,
	)
	if err != nil {
		return nil, err
	}
	overview.DateRange.Earliest = formatNullDate(earliest)
	overview.DateRange.Latest = formatNullDate(latest)

	query = `
		SELECT COUNT(*),
		       COALESCE(SUM((SELECT COUNT(*) FROM entries e WHERE e.sheet_id = s.id)), 0),
		       COALESCE(SUM((SELECT COUNT(*) FROM denominations d WHERE d.sheet_id = s.id)), 0)
		FROM daily_sheets s
		WHERE s.created_at >= ?
	`
	recent := &overview.RecentActivity.Last7Days
	err = r.db.QueryRowContext(ctx, query, since).Scan(&recent.Sheets, &recent.Entries, &recent.Denominations)
	if err != nil {
		return nil, err
	}
	return overview, nil
}

func formatNullDate(t sql.NullTime) *string {
	if !t.Valid {
		return nil
	}
	s := t.Time.Format(models.DateLayout)
	return &s
}
