package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"daily-sheet-service/internal/cellkey"
	"daily-sheet-service/internal/formula"
	"daily-sheet-service/internal/models"
	"daily-sheet-service/internal/reconciliation"
	"daily-sheet-service/internal/repositories"
	"daily-sheet-service/internal/validation"
)

// ClosingService reconciles a stored day and closes it.
type ClosingService struct {
	db            *sql.DB
	sheets        repositories.SheetRepository
	entries       repositories.EntryRepository
	denominations repositories.DenominationRepository
	ledger        reconciliation.LedgerProvider
	rowLimit      int
	logger        logrus.FieldLogger
	now           func() time.Time
}

func NewClosingService(
	db *sql.DB,
	sheets repositories.SheetRepository,
	entries repositories.EntryRepository,
	denominations repositories.DenominationRepository,
	ledger reconciliation.LedgerProvider,
	rowLimit int,
	logger logrus.FieldLogger,
) *ClosingService {
	return &ClosingService{
		db:            db,
		sheets:        sheets,
		entries:       entries,
		denominations: denominations,
		ledger:        ledger,
		rowLimit:      rowLimit,
		logger:        logger,
		now:           time.Now,
	}
}

type DayReconciliation struct {
	SheetID   int64                    `json:"sheetId"`
	Date      string                   `json:"date"`
	IsClosed  bool                     `json:"isClosed"`
	Summary   reconciliation.Summary   `json:"summary"`
	Readiness reconciliation.Readiness `json:"readiness"`
}

func (s *ClosingService) Reconcile(ctx context.Context, sheetID int64) (*DayReconciliation, error) {
	sheet, err := s.sheets.GetByID(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, sheet)
}

func (s *ClosingService) reconcile(ctx context.Context, sheet *models.Sheet) (*DayReconciliation, error) {
	snapshot, err := s.snapshot(ctx, sheet)
	if err != nil {
		return nil, err
	}
	return &DayReconciliation{
		SheetID:   sheet.ID,
		Date:      sheet.Date,
		IsClosed:  sheet.IsClosed,
		Summary:   reconciliation.Summarize(snapshot),
		Readiness: reconciliation.CloseReadiness(snapshot),
	}, nil
}

// snapshot recomputes the amount columns from their raw values rather than
// trusting the calculated values stored by the client.
func (s *ClosingService) snapshot(ctx context.Context, sheet *models.Sheet) (reconciliation.Snapshot, error) {
	entries, err := s.entries.ListBySheet(ctx, sheet.ID)
	if err != nil {
		return reconciliation.Snapshot{}, fmt.Errorf("failed to load entries: %w", err)
	}
	denominations, err := s.denominations.ListBySheet(ctx, sheet.ID)
	if err != nil {
		return reconciliation.Snapshot{}, fmt.Errorf("failed to load denominations: %w", err)
	}

	var amounts []models.Entry
	for _, e := range entries {
		if ref, ok := cellkey.Parse(e.CellKey); ok && ref.Field == cellkey.FieldAmount {
			amounts = append(amounts, e)
		}
	}
	engine := formula.New(formula.Options{RowLimit: s.rowLimit})
	if err := engine.LoadFromEntries(amounts); err != nil {
		s.logger.WithFields(logrus.Fields{
			"module":  "closing",
			"sheetId": sheet.ID,
		}).WithError(err).Warn("skipped unreadable entries")
	}

	counts := make([]reconciliation.Count, 0, len(denominations))
	for _, d := range denominations {
		counts = append(counts, reconciliation.Count{Value: d.DenominationValue, Pieces: d.Pieces})
	}

	return reconciliation.BuildSnapshot(ctx, reconciliation.Input{
		Date:          sheet.Date,
		OpeningCash:   sheet.OpeningCash,
		Values:        engine.Values(),
		RowLimit:      s.rowLimit,
		Denominations: counts,
	}, s.ledger)
}

// Close records the closing figures when every readiness check passes. The
// reconciliation is returned with ErrNotReadyToClose so callers can show the
// failing checks.
func (s *ClosingService) Close(ctx context.Context, sheetID int64, notes *string) (*DayReconciliation, error) {
	sheet, err := s.sheets.GetByID(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	if sheet.IsClosed {
		return nil, ErrSheetClosed
	}

	day, err := s.reconcile(ctx, sheet)
	if err != nil {
		return nil, err
	}
	if !day.Readiness.CanClose {
		return day, ErrNotReadyToClose
	}

	if notes != nil {
		cleaned := validation.SanitizeString(*notes)
		notes = &cleaned
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = s.sheets.Close(ctx, tx, sheet.ID, models.Closing{
		ClosingCashAmount:  day.Summary.DenominationTotal,
		SystemExpectedCash: day.Summary.NetAmount,
		Difference:         day.Summary.Difference,
		Notes:              notes,
		ClosedAt:           s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, repositories.ErrSheetClosed) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to close sheet: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"module":     "closing",
		"sheetId":    sheet.ID,
		"date":       sheet.Date,
		"difference": day.Summary.Difference.StringFixed(2),
	}).Info("day closed")

	day.IsClosed = true
	return day, nil
}
