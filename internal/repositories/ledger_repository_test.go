package repositories

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daily-sheet-service/internal/models"
)

var debtorCols = []string{
	"id", "debtor_date", "serial_no", "party_name", "salesman", "bill_no", "amount",
	"status", "collected_on", "collection_serial", "notes", "created_at",
}

func TestDebtorGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDebtorRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM debtors WHERE id = ?")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(debtorCols))

	_, err := repo.GetByID(context.Background(), 3)
	assert.ErrorIs(t, err, ErrDebtorNotFound)
}

func TestDebtorListPending(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDebtorRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = ?")).
		WithArgs(models.DebtorStatusPending).
		WillReturnRows(sqlmock.NewRows(debtorCols).
			AddRow(1, day, 1, "Ravi", "Anil", "B0001", "200.00", "Pending", nil, nil, nil, stamped))

	debtors, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, debtors, 1)
	assert.Equal(t, "2024-01-26", debtors[0].Date)
	assert.True(t, debtors[0].Amount.Equal(decimal.NewFromInt(200)))
	assert.Nil(t, debtors[0].CollectedOn)
	assert.Nil(t, debtors[0].CollectionSerial)
}

func TestDebtorMarkPaidOnlyOnce(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDebtorRepository(db)
	collectedOn := "2024-01-27"
	serial := 4
	debtor := &models.Debtor{ID: 1, CollectedOn: &collectedOn, CollectionSerial: &serial}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ? AND status = ?")).
		WithArgs(models.DebtorStatusPaid, collectedOn, int64(serial), int64(1), models.DebtorStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ? AND status = ?")).
		WithArgs(models.DebtorStatusPaid, collectedOn, int64(serial), int64(1), models.DebtorStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.MarkPaid(context.Background(), tx, debtor))
	assert.ErrorIs(t, repo.MarkPaid(context.Background(), tx, debtor), ErrDebtorAlreadyPaid)
	require.NoError(t, tx.Rollback())
}

func TestDebtorNextSerial(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDebtorRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(serial_no), 0) + 1 FROM debtors")).
		WithArgs("2024-01-26").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	serial, err := repo.NextSerial(context.Background(), tx, "2024-01-26")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, 3, serial)
}

func TestCollectionCreateAndTotal(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCollectionRepository(db)
	debtorID := int64(1)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO collections")).
		WithArgs("2024-01-27", 4, debtorID, "Ravi", "", "B0001", "200", models.PaymentModeQR, "").
		WillReturnResult(sqlmock.NewResult(15, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	c := &models.Collection{
		Date: "2024-01-27", SerialNo: 4, DebtorID: &debtorID, PartyName: "Ravi",
		BillNo: "B0001", Amount: decimal.NewFromInt(200), PaymentMode: models.PaymentModeQR,
	}
	require.NoError(t, repo.Create(context.Background(), tx, c))
	require.NoError(t, tx.Commit())
	assert.Equal(t, int64(15), c.ID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM collections")).
		WithArgs("2024-01-27").
		WillReturnRows(sqlmock.NewRows([]string{"total", "count"}).AddRow("350.50", 2))

	total, count, err := repo.TotalOn(context.Background(), "2024-01-27")
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("350.50")))
	assert.Equal(t, 2, count)
}

func TestExpenseDeleteNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewExpenseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM expenses WHERE id = ?")).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Delete(context.Background(), tx, 8), ErrExpenseNotFound)
	require.NoError(t, tx.Rollback())
}

func TestExpenseListByDate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewExpenseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE expense_date = ? ORDER BY expense_time")).
		WithArgs("2024-01-26").
		WillReturnRows(sqlmock.NewRows([]string{"id", "expense_date", "expense_time", "purpose", "amount", "category", "notes", "created_at"}).
			AddRow(1, day, "10:00", "Tea", "50.00", "General", nil, stamped))

	expenses, err := repo.List(context.Background(), "2024-01-26")
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, "Tea", expenses[0].Purpose)
	assert.Equal(t, "", expenses[0].Notes)
}
