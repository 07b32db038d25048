package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"daily-sheet-service/internal/models"
	"daily-sheet-service/internal/repositories"
	"daily-sheet-service/internal/validation"
)

type EntryService struct {
	db        *sql.DB
	sheets    repositories.SheetRepository
	entries   repositories.EntryRepository
	validator *validation.Validator
}

func NewEntryService(
	db *sql.DB,
	sheets repositories.SheetRepository,
	entries repositories.EntryRepository,
	validator *validation.Validator,
) *EntryService {
	return &EntryService{
		db:        db,
		sheets:    sheets,
		entries:   entries,
		validator: validator,
	}
}

// Save upserts the batch in one transaction. Either every entry is stored or
// none is. Text columns are stored sanitized, with the calculated value equal
// to the raw one.
func (s *EntryService) Save(ctx context.Context, sheetID int64, entries []models.Entry) ([]models.Entry, error) {
	if _, err := openSheet(ctx, s.sheets, sheetID); err != nil {
		return nil, err
	}

	var errs []string
	for i, entry := range entries {
		if entryErrs := s.validator.ValidateEntry(entry); len(entryErrs) > 0 {
			errs = append(errs, fmt.Sprintf("Entry %d: %s", i+1, strings.Join(entryErrs, ", ")))
		}
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	saved := make([]models.Entry, 0, len(entries))
	for _, entry := range entries {
		entry.SheetID = sheetID
		if validation.IsTextKey(entry.CellKey) {
			entry.RawValue = validation.SanitizeString(entry.RawValue)
			entry.CalculatedValue = entry.RawValue
		}
		if err := s.entries.Upsert(ctx, tx, &entry); err != nil {
			return nil, fmt.Errorf("failed to save entry %s: %w", entry.CellKey, err)
		}
		saved = append(saved, entry)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return saved, nil
}

func (s *EntryService) List(ctx context.Context, sheetID int64) ([]models.Entry, error) {
	return s.entries.ListBySheet(ctx, sheetID)
}

// DeleteAll removes every entry of the sheet. A closed sheet keeps its
// entries.
func (s *EntryService) DeleteAll(ctx context.Context, sheetID int64) (int64, error) {
	if err := checkNotClosed(ctx, s.sheets, sheetID); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	count, err := s.entries.DeleteBySheet(ctx, tx, sheetID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete entries: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return count, nil
}

// checkNotClosed fails only for an existing closed sheet; deleting rows of a
// missing sheet is a no-op.
func checkNotClosed(ctx context.Context, sheets repositories.SheetRepository, sheetID int64) error {
	_, err := openSheet(ctx, sheets, sheetID)
	if errors.Is(err, repositories.ErrSheetNotFound) {
		return nil
	}
	return err
}
