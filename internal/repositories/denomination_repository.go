package repositories

import (
	"context"
	"database/sql"

	"daily-sheet-service/internal/models"
)

type DenominationRepository interface {
	Upsert(ctx context.Context, tx *sql.Tx, d *models.Denomination) error
	ListBySheet(ctx context.Context, sheetID int64) ([]models.Denomination, error)
	DeleteBySheet(ctx context.Context, tx *sql.Tx, sheetID int64) (int64, error)
}

type denominationRepository struct {
	db *sql.DB
}

func NewDenominationRepository(db *sql.DB) DenominationRepository {
	return &denominationRepository{db: db}
}

func (r *denominationRepository) Upsert(ctx context.Context, tx *sql.Tx, d *models.Denomination) error {
	query := `
		INSERT INTO denominations (
			sheet_id, denomination_value, denomination_label, pieces, calculated_amount
		) VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			denomination_label = VALUES(denomination_label),
			pieces = VALUES(pieces),
			calculated_amount = VALUES(calculated_amount),
			updated_at = CURRENT_TIMESTAMP,
			id = LAST_INSERT_ID(id)
	`
	result, err := tx.ExecContext(ctx, query,
		d.SheetID,
		d.DenominationValue,
		d.DenominationLabel,
		d.Pieces,
		d.CalculatedAmount,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}

func (r *denominationRepository) ListBySheet(ctx context.Context, sheetID int64) ([]models.Denomination, error) {
	query := `
		SELECT id, sheet_id, denomination_value, denomination_label, pieces,
		       calculated_amount, created_at, updated_at
		FROM denominations
		WHERE sheet_id = ?
		ORDER BY denomination_value DESC
	`
	rows, err := r.db.QueryContext(ctx, query, sheetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	denominations := []models.Denomination{}
	for rows.Next() {
		var d models.Denomination
		err := rows.Scan(
			&d.ID,
			&d.SheetID,
			&d.DenominationValue,
			&d.DenominationLabel,
			&d.Pieces,
			&d.CalculatedAmount,
			&d.CreatedAt,
			&d.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		denominations = append(denominations, d)
	}
	return denominations, rows.Err()
}

func (r *denominationRepository) DeleteBySheet(ctx context.Context, tx *sql.Tx, sheetID int64) (int64, error) {
	result, err := tx.ExecContext(ctx, `DELETE FROM denominations WHERE sheet_id = ?`, sheetID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
