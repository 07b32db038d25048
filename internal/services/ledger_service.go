package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"daily-sheet-service/internal/ledger"
	"daily-sheet-service/internal/matching"
	"daily-sheet-service/internal/models"
	"daily-sheet-service/internal/reconciliation"
	"daily-sheet-service/internal/repositories"
	"daily-sheet-service/internal/validation"
)

type LedgerService struct {
	db          *sql.DB
	debtors     repositories.DebtorRepository
	collections repositories.CollectionRepository
	expenses    repositories.ExpenseRepository
	now         func() time.Time
}

var _ reconciliation.LedgerProvider = (*LedgerService)(nil)

func NewLedgerService(
	db *sql.DB,
	debtors repositories.DebtorRepository,
	collections repositories.CollectionRepository,
	expenses repositories.ExpenseRepository,
) *LedgerService {
	return &LedgerService{
		db:          db,
		debtors:     debtors,
		collections: collections,
		expenses:    expenses,
		now:         time.Now,
	}
}

func (s *LedgerService) today() string {
	return s.now().Format(models.DateLayout)
}

// ledgerError turns rule violations from the ledger package into service
// errors.
func ledgerError(err error) error {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		return &ValidationError{Errors: []string{verr.Error()}}
	case errors.Is(err, ledger.ErrAlreadyPaid):
		return ErrDebtorAlreadyPaid
	case errors.Is(err, ledger.ErrPartyMismatch):
		return &ValidationError{Errors: []string{err.Error()}}
	}
	return err
}

// AddDebtor records a credit sale. The serial number is the next free one
// for the debtor's date.
func (s *LedgerService) AddDebtor(ctx context.Context, d models.Debtor) (*models.Debtor, error) {
	if d.Date == "" {
		d.Date = s.today()
	}
	d.PartyName = validation.SanitizeString(d.PartyName)
	d.Salesman = validation.SanitizeString(d.Salesman)
	d.Notes = validation.SanitizeString(d.Notes)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if d.SerialNo == 0 {
		if d.SerialNo, err = s.debtors.NextSerial(ctx, tx, d.Date); err != nil {
			return nil, fmt.Errorf("failed to allocate debtor serial: %w", err)
		}
	}
	debtor, err := ledger.NewDebtor(d, s.now())
	if err != nil {
		return nil, ledgerError(err)
	}

	if err := s.debtors.Create(ctx, tx, &debtor); err != nil {
		return nil, fmt.Errorf("failed to create debtor: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &debtor, nil
}

// Debtors lists the debtors of date (all when empty) matching query.
func (s *LedgerService) Debtors(ctx context.Context, date, query string) ([]models.Debtor, error) {
	if date != "" {
		if err := checkDate(date); err != nil {
			return nil, err
		}
	}
	debtors, err := s.debtors.List(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list debtors: %w", err)
	}
	return ledger.Search(debtors, query), nil
}

func (s *LedgerService) Pending(ctx context.Context) ([]models.Debtor, ledger.Totals, error) {
	debtors, err := s.debtors.ListPending(ctx)
	if err != nil {
		return nil, ledger.Totals{}, fmt.Errorf("failed to list pending debtors: %w", err)
	}
	return debtors, ledger.DebtorTotals(debtors), nil
}

// AddCollection records a payment. When it names a debtor, the debtor is
// settled in the same transaction and missing collection fields are copied
// from it. A debtor can be settled only once.
func (s *LedgerService) AddCollection(ctx context.Context, c models.Collection) (*models.Collection, error) {
	if c.Date == "" {
		c.Date = s.today()
	}
	c.PartyName = validation.SanitizeString(c.PartyName)
	c.Salesman = validation.SanitizeString(c.Salesman)
	c.Notes = validation.SanitizeString(c.Notes)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var debtor *models.Debtor
	if c.DebtorID != nil {
		debtor, err = s.debtors.GetForUpdate(ctx, tx, *c.DebtorID)
		if err != nil {
			return nil, err
		}
		if debtor.Status != models.DebtorStatusPending {
			return nil, ErrDebtorAlreadyPaid
		}
		if c.PartyName == "" {
			c.PartyName = debtor.PartyName
		}
		if c.Salesman == "" {
			c.Salesman = debtor.Salesman
		}
		if c.BillNo == "" {
			c.BillNo = debtor.BillNo
		}
		if c.Amount.IsZero() {
			c.Amount = debtor.Amount
		}
	}

	if c.SerialNo == 0 {
		if c.SerialNo, err = s.collections.NextSerial(ctx, tx, c.Date); err != nil {
			return nil, fmt.Errorf("failed to allocate collection serial: %w", err)
		}
	}
	collection, err := ledger.NewCollection(c, s.now())
	if err != nil {
		return nil, ledgerError(err)
	}

	if debtor != nil {
		if err := ledger.Settle(debtor, collection); err != nil {
			return nil, ledgerError(err)
		}
		if err := s.debtors.MarkPaid(ctx, tx, debtor); err != nil {
			if errors.Is(err, repositories.ErrDebtorAlreadyPaid) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to settle debtor: %w", err)
		}
	}

	if err := s.collections.Create(ctx, tx, &collection); err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &collection, nil
}

func (s *LedgerService) Collections(ctx context.Context, date string) ([]models.Collection, error) {
	if date != "" {
		if err := checkDate(date); err != nil {
			return nil, err
		}
	}
	collections, err := s.collections.List(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return collections, nil
}

// MatchCollection suggests which pending debtors a payment settles, best
// first. Nothing is written.
func (s *LedgerService) MatchCollection(ctx context.Context, c models.Collection, limit int) ([]*matching.MatchResult, error) {
	if !c.Amount.IsPositive() {
		return nil, &ValidationError{Errors: []string{"amount: must be greater than zero"}}
	}
	if c.Date == "" {
		c.Date = s.today()
	} else if err := checkDate(c.Date); err != nil {
		return nil, err
	}
	c.PartyName = validation.SanitizeString(c.PartyName)
	c.BillNo = validation.SanitizeString(c.BillNo)

	debtors, err := s.debtors.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending debtors: %w", err)
	}

	results := matching.NewMatchEngine(debtors).Suggest(matching.PaymentFrom(c), limit)
	if results == nil {
		results = []*matching.MatchResult{}
	}
	return results, nil
}

func (s *LedgerService) AddExpense(ctx context.Context, e models.Expense) (*models.Expense, error) {
	e.Purpose = validation.SanitizeString(e.Purpose)
	e.Category = validation.SanitizeString(e.Category)
	e.Notes = validation.SanitizeString(e.Notes)

	expense, err := ledger.NewExpense(e, s.now())
	if err != nil {
		return nil, ledgerError(err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.expenses.Create(ctx, tx, &expense); err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &expense, nil
}

func (s *LedgerService) Expenses(ctx context.Context, date string) ([]models.Expense, error) {
	if date != "" {
		if err := checkDate(date); err != nil {
			return nil, err
		}
	}
	expenses, err := s.expenses.List(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return expenses, nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.expenses.Delete(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *LedgerService) ExpensesOn(ctx context.Context, date string) (decimal.Decimal, error) {
	return s.expenses.TotalOn(ctx, date)
}

func (s *LedgerService) CollectionsOn(ctx context.Context, date string) (decimal.Decimal, int, error) {
	return s.collections.TotalOn(ctx, date)
}

func (s *LedgerService) PendingDebtors(ctx context.Context) (int, error) {
	return s.debtors.CountPending(ctx)
}
