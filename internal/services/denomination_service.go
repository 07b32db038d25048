package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"daily-sheet-service/internal/models"
	"daily-sheet-service/internal/reconciliation"
	"daily-sheet-service/internal/repositories"
	"daily-sheet-service/internal/validation"
)

type DenominationService struct {
	db            *sql.DB
	sheets        repositories.SheetRepository
	denominations repositories.DenominationRepository
	validator     *validation.Validator
}

func NewDenominationService(
	db *sql.DB,
	sheets repositories.SheetRepository,
	denominations repositories.DenominationRepository,
	validator *validation.Validator,
) *DenominationService {
	return &DenominationService{
		db:            db,
		sheets:        sheets,
		denominations: denominations,
		validator:     validator,
	}
}

// Save upserts the counted pieces in one transaction. The stored amount is
// always recomputed from pieces and value; a client supplied amount is
// ignored.
func (s *DenominationService) Save(ctx context.Context, sheetID int64, denominations []models.Denomination) ([]models.Denomination, error) {
	if _, err := openSheet(ctx, s.sheets, sheetID); err != nil {
		return nil, err
	}

	var errs []string
	rows := make([]models.Denomination, 0, len(denominations))
	for i, d := range denominations {
		d.SheetID = sheetID
		if d.DenominationLabel == "" {
			d.DenominationLabel = reconciliation.Label(d.DenominationValue)
		}
		d.CalculatedAmount = reconciliation.AmountFor(d.DenominationValue, d.Pieces)
		if rowErrs := s.validator.ValidateDenomination(d); len(rowErrs) > 0 {
			errs = append(errs, fmt.Sprintf("Denomination %d: %s", i+1, strings.Join(rowErrs, ", ")))
		}
		rows = append(rows, d)
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range rows {
		if err := s.denominations.Upsert(ctx, tx, &rows[i]); err != nil {
			return nil, fmt.Errorf("failed to save denomination %d: %w", rows[i].DenominationValue, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return rows, nil
}

func (s *DenominationService) List(ctx context.Context, sheetID int64) ([]models.Denomination, error) {
	return s.denominations.ListBySheet(ctx, sheetID)
}

func (s *DenominationService) DeleteAll(ctx context.Context, sheetID int64) (int64, error) {
	if err := checkNotClosed(ctx, s.sheets, sheetID); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	count, err := s.denominations.DeleteBySheet(ctx, tx, sheetID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete denominations: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return count, nil
}
