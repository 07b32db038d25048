package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"daily-sheet-service/internal/models"
)

type EntryRepository interface {
	Upsert(ctx context.Context, tx *sql.Tx, entry *models.Entry) error
	ListBySheet(ctx context.Context, sheetID int64) ([]models.Entry, error)
	DeleteBySheet(ctx context.Context, tx *sql.Tx, sheetID int64) (int64, error)
}

type entryRepository struct {
	db *sql.DB
}

func NewEntryRepository(db *sql.DB) EntryRepository {
	return &entryRepository{db: db}
}

// Upsert inserts the entry or replaces the mutable fields of the existing
// row with the same (sheet_id, cell_key). entry.ID is set either way.
func (r *entryRepository) Upsert(ctx context.Context, tx *sql.Tx, entry *models.Entry) error {
	query := `
		INSERT INTO entries (
			sheet_id, section, row_idx, cell_key, raw_value, calculated_value, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			section = VALUES(section),
			row_idx = VALUES(row_idx),
			raw_value = VALUES(raw_value),
			calculated_value = VALUES(calculated_value),
			metadata = VALUES(metadata),
			updated_at = CURRENT_TIMESTAMP,
			id = LAST_INSERT_ID(id)
	`
	result, err := tx.ExecContext(ctx, query,
		entry.SheetID,
		entry.Section,
		entry.RowIdx,
		entry.CellKey,
		entry.RawValue,
		entry.CalculatedValue,
		jsonArg(entry.Metadata),
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func (r *entryRepository) ListBySheet(ctx context.Context, sheetID int64) ([]models.Entry, error) {
	query := `
		SELECT id, sheet_id, section, row_idx, cell_key, raw_value, calculated_value,
		       metadata, created_at, updated_at
		FROM entries
		WHERE sheet_id = ?
		ORDER BY section, row_idx
	`
	rows, err := r.db.QueryContext(ctx, query, sheetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		var (
			e        models.Entry
			metadata []byte
		)
		err := rows.Scan(
			&e.ID,
			&e.SheetID,
			&e.Section,
			&e.RowIdx,
			&e.CellKey,
			&e.RawValue,
			&e.CalculatedValue,
			&metadata,
			&e.CreatedAt,
			&e.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			e.Metadata = json.RawMessage(metadata)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *entryRepository) DeleteBySheet(ctx context.Context, tx *sql.Tx, sheetID int64) (int64, error) {
	result, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE sheet_id = ?`, sheetID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
