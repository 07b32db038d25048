package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"daily-sheet-service/internal/models"
)

var ErrExpenseNotFound = errors.New("expense not found")

type ExpenseRepository interface {
	Create(ctx context.Context, tx *sql.Tx, expense *models.Expense) error
	List(ctx context.Context, date string) ([]models.Expense, error)
	Delete(ctx context.Context, tx *sql.Tx, id int64) error
	TotalOn(ctx context.Context, date string) (decimal.Decimal, error)
}

type expenseRepository struct {
	db *sql.DB
}

func NewExpenseRepository(db *sql.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) Create(ctx context.Context, tx *sql.Tx, e *models.Expense) error {
	query := `
		INSERT INTO expenses (
			expense_date, expense_time, purpose, amount, category, notes
		) VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := tx.ExecContext(ctx, query,
		e.Date,
		e.Time,
		e.Purpose,
		e.Amount,
		e.Category,
		e.Notes,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

func (r *expenseRepository) List(ctx context.Context, date string) ([]models.Expense, error) {
	const columns = `SELECT id, expense_date, expense_time, purpose, amount, category, notes, created_at FROM expenses`
	var (
		rows *sql.Rows
		err  error
	)
	if date == "" {
		rows, err = r.db.QueryContext(ctx, columns+` ORDER BY expense_date DESC, expense_time`)
	} else {
		rows, err = r.db.QueryContext(ctx, columns+` WHERE expense_date = ? ORDER BY expense_time`, date)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		var (
			e     models.Expense
			day   time.Time
			notes sql.NullString
		)
		err := rows.Scan(&e.ID, &day, &e.Time, &e.Purpose, &e.Amount, &e.Category, &notes, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		e.Date = day.Format(models.DateLayout)
		e.Notes = notes.String
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *expenseRepository) Delete(ctx context.Context, tx *sql.Tx, id int64) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRow(result, ErrExpenseNotFound)
}

func (r *expenseRepository) TotalOn(ctx context.Context, date string) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE expense_date = ?`
	if err := r.db.QueryRowContext(ctx, query, date).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
