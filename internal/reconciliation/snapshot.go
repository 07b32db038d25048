package reconciliation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"daily-sheet-service/internal/cellkey"
)

// LedgerProvider supplies the ledger totals of a day. Implementations are
// optional; without one the ledgers count as empty.
type LedgerProvider interface {
	ExpensesOn(ctx context.Context, date string) (decimal.Decimal, error)
	CollectionsOn(ctx context.Context, date string) (total decimal.Decimal, count int, err error)
	PendingDebtors(ctx context.Context) (int, error)
}

// Input is the sheet-side state of a snapshot.
type Input struct {
	Date          string
	OpeningCash   decimal.Decimal
	Values        map[string]decimal.Decimal
	RowLimit      int
	Denominations []Count
}

// BuildSnapshot assembles a Snapshot from sheet values and, when provider is
// non-nil, the day's ledgers.
func BuildSnapshot(ctx context.Context, in Input, provider LedgerProvider) (Snapshot, error) {
	s := Snapshot{
		OpeningCash:      in.OpeningCash,
		Sections:         SectionsFromValues(in.Values, in.RowLimit),
		Denominations:    in.Denominations,
		ExpensesToday:    decimal.Zero,
		CollectionsToday: decimal.Zero,
	}
	if provider == nil {
		return s, nil
	}

	expenses, err := provider.ExpensesOn(ctx, in.Date)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load expenses: %w", err)
	}
	collections, count, err := provider.CollectionsOn(ctx, in.Date)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load collections: %w", err)
	}
	pending, err := provider.PendingDebtors(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load pending debtors: %w", err)
	}

	s.ExpensesToday = expenses
	s.CollectionsToday = collections
	s.CollectionsCount = count
	s.PendingDebtors = pending
	return s, nil
}

// SectionsFromValues picks the amount column of every section out of a
// cell-key keyed value map. Missing rows are skipped.
func SectionsFromValues(values map[string]decimal.Decimal, rowLimit int) map[cellkey.Section][]decimal.Decimal {
	if rowLimit <= 0 {
		rowLimit = cellkey.DefaultRowLimit
	}
	sections := make(map[cellkey.Section][]decimal.Decimal, len(cellkey.Sections))
	for _, section := range cellkey.Sections {
		var column []decimal.Decimal
		for _, key := range cellkey.Range(section, cellkey.FieldAmount, rowLimit) {
			if v, ok := values[key]; ok {
				column = append(column, v)
			}
		}
		sections[section] = column
	}
	return sections
}
