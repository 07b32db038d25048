package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"daily-sheet-service/internal/database"
	"daily-sheet-service/internal/models"
	"daily-sheet-service/internal/repositories"
	"daily-sheet-service/internal/validation"
)

type SheetService struct {
	db     *sql.DB
	sheets repositories.SheetRepository
	now    func() time.Time
}

func NewSheetService(db *sql.DB, sheets repositories.SheetRepository) *SheetService {
	return &SheetService{
		db:     db,
		sheets: sheets,
		now:    time.Now,
	}
}

// CreateOrGet returns the sheet for date, creating it when missing. An empty
// date means today. Two concurrent calls for the same date return the same
// sheet.
func (s *SheetService) CreateOrGet(ctx context.Context, date string) (*models.Sheet, error) {
	if date == "" {
		date = s.now().Format(models.DateLayout)
	}
	if err := checkDate(date); err != nil {
		return nil, err
	}

	sheet, err := s.sheets.GetByDate(ctx, date)
	if err == nil {
		return sheet, nil
	}
	if !errors.Is(err, repositories.ErrSheetNotFound) {
		return nil, fmt.Errorf("failed to load sheet: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sheet, err = s.sheets.Create(ctx, tx, date)
	if database.IsDuplicateKey(err) {
		tx.Rollback()
		return s.sheets.GetByDate(ctx, date)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return sheet, nil
}

func (s *SheetService) GetByDate(ctx context.Context, date string) (*models.Sheet, error) {
	if err := checkDate(date); err != nil {
		return nil, err
	}
	return s.sheets.GetByDate(ctx, date)
}

func (s *SheetService) Get(ctx context.Context, id int64) (*models.Sheet, error) {
	return s.sheets.GetByID(ctx, id)
}

// Update sets the note and optionally the opening cash. The opening cash of
// a closed sheet cannot change.
func (s *SheetService) Update(ctx context.Context, id int64, note *string, openingCash *decimal.Decimal) (*models.Sheet, error) {
	sheet, err := s.sheets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if openingCash != nil && sheet.IsClosed {
		return nil, ErrSheetClosed
	}
	if note != nil {
		cleaned := validation.SanitizeString(*note)
		note = &cleaned
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.sheets.Update(ctx, tx, id, note, openingCash); err != nil {
		return nil, fmt.Errorf("failed to update sheet: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.sheets.GetByID(ctx, id)
}

// openSheet loads a sheet that may still be edited.
func openSheet(ctx context.Context, sheets repositories.SheetRepository, id int64) (*models.Sheet, error) {
	sheet, err := sheets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sheet.IsClosed {
		return nil, ErrSheetClosed
	}
	return sheet, nil
}
