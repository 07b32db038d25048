package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daily-sheet-service/internal/models"
	"daily-sheet-service/internal/repositories"
)

var debtorCols = []string{
	"id", "debtor_date", "serial_no", "party_name", "salesman", "bill_no", "amount",
	"status", "collected_on", "collection_serial", "notes", "created_at",
}

func newLedgerService(t *testing.T) (*LedgerService, sqlmock.Sqlmock) {
	db, mock := newMock(t)
	svc := NewLedgerService(db,
		repositories.NewDebtorRepository(db),
		repositories.NewCollectionRepository(db),
		repositories.NewExpenseRepository(db),
	)
	svc.now = fixedNow(time.Date(2024, 1, 27, 11, 30, 0, 0, time.UTC))
	return svc, mock
}

func TestAddCollectionSettlesDebtor(t *testing.T) {
	svc, mock := newLedgerService(t)
	debtorID := int64(3)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM debtors WHERE id = ? FOR UPDATE")).
		WithArgs(debtorID).
		WillReturnRows(sqlmock.NewRows(debtorCols).
			AddRow(3, sheetDay, 2, "Sharma Traders", "Ravi", "B0002", "1500.00", "Pending", nil, nil, nil, stamp))
	mock.ExpectQuery(regexp.QuoteMeta("FROM collections WHERE collection_date = ?")).
		WithArgs("2024-01-27").
		WillReturnRows(sqlmock.NewRows([]string{"serial"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE debtors")).
		WithArgs("Paid", "2024-01-27", 4, debtorID, "Pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO collections")).
		WithArgs("2024-01-27", 4, debtorID, "Sharma Traders", "Ravi", "B0002", "1500", "QR", "").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	collection, err := svc.AddCollection(context.Background(), models.Collection{
		DebtorID:    &debtorID,
		PaymentMode: "qr",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), collection.ID)
	assert.Equal(t, 4, collection.SerialNo)
	assert.True(t, collection.Amount.Equal(decimal.NewFromInt(1500)))
}

func TestAddCollectionForPaidDebtor(t *testing.T) {
	svc, mock := newLedgerService(t)
	debtorID := int64(3)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM debtors WHERE id = ? FOR UPDATE")).
		WithArgs(debtorID).
		WillReturnRows(sqlmock.NewRows(debtorCols).
			AddRow(3, sheetDay, 2, "Sharma Traders", "Ravi", "B0002", "1500.00", "Paid", sheetDay, 1, nil, stamp))
	mock.ExpectRollback()

	_, err := svc.AddCollection(context.Background(), models.Collection{DebtorID: &debtorID})
	assert.ErrorIs(t, err, ErrDebtorAlreadyPaid)
}

func TestAddCollectionUnknownDebtor(t *testing.T) {
	svc, mock := newLedgerService(t)
	debtorID := int64(9)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(debtorID).
		WillReturnRows(sqlmock.NewRows(debtorCols))
	mock.ExpectRollback()

	_, err := svc.AddCollection(context.Background(), models.Collection{DebtorID: &debtorID})
	assert.ErrorIs(t, err, ErrDebtorNotFound)
}

func TestAddDebtorAllocatesSerial(t *testing.T) {
	svc, mock := newLedgerService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM debtors WHERE debtor_date = ?")).
		WithArgs("2024-01-27").
		WillReturnRows(sqlmock.NewRows([]string{"serial"}).AddRow(5))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO debtors")).
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectCommit()

	debtor, err := svc.AddDebtor(context.Background(), models.Debtor{
		PartyName: " Gupta Stores ",
		Amount:    decimal.RequireFromString("820.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(21), debtor.ID)
	assert.Equal(t, 5, debtor.SerialNo)
	assert.Equal(t, "B0005", debtor.BillNo)
	assert.Equal(t, "Gupta Stores", debtor.PartyName)
	assert.Equal(t, models.DebtorStatusPending, debtor.Status)
}

func TestAddDebtorRejectsZeroAmount(t *testing.T) {
	svc, mock := newLedgerService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(MAX(serial_no), 0) + 1 FROM debtors")).
		WillReturnRows(sqlmock.NewRows([]string{"serial"}).AddRow(1))
	mock.ExpectRollback()

	_, err := svc.AddDebtor(context.Background(), models.Debtor{PartyName: "Gupta Stores"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDeleteExpenseNotFound(t *testing.T) {
	svc, mock := newLedgerService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM expenses")).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := svc.DeleteExpense(context.Background(), 4)
	assert.ErrorIs(t, err, ErrExpenseNotFound)
}

func TestDebtorsRejectsBadDate(t *testing.T) {
	svc, _ := newLedgerService(t)

	_, err := svc.Debtors(context.Background(), "27/01/2024", "")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestMatchCollectionSuggestsPendingDebtors(t *testing.T) {
	svc, mock := newLedgerService(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM debtors WHERE status = ?")).
		WithArgs("Pending").
		WillReturnRows(sqlmock.NewRows(debtorCols).
			AddRow(3, sheetDay, 2, "Sharma Traders", "Ravi", "B0002", "1500.00", "Pending", nil, nil, nil, stamp).
			AddRow(4, sheetDay, 3, "Kumar Stores", "Ravi", "B0003", "1500.00", "Pending", nil, nil, nil, stamp))

	matches, err := svc.MatchCollection(context.Background(), models.Collection{
		PartyName: " sharma traders ",
		Amount:    decimal.NewFromInt(1500),
	}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(3), matches[0].Debtors[0].ID)
	assert.Equal(t, 0.7, matches[0].Confidence)
}

func TestMatchCollectionRejectsZeroAmount(t *testing.T) {
	svc, _ := newLedgerService(t)

	_, err := svc.MatchCollection(context.Background(), models.Collection{PartyName: "Sharma Traders"}, 5)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
