package repositories

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daily-sheet-service/internal/models"
)

func TestEntryUpsertSetsID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEntryRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE")).
		WithArgs(int64(7), "POS", 0, "POS_AMOUNT_0", "=500*2", "1000", `{"source":"grid"}`).
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO entries")).
		WithArgs(int64(7), "POS", 0, "POS_AMOUNT_0", "1000", "1000", nil).
		WillReturnResult(sqlmock.NewResult(41, 2))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)

	first := &models.Entry{
		SheetID: 7, Section: "POS", RowIdx: 0, CellKey: "POS_AMOUNT_0",
		RawValue: "=500*2", CalculatedValue: "1000", Metadata: json.RawMessage(`{"source":"grid"}`),
	}
	require.NoError(t, repo.Upsert(context.Background(), tx, first))

	again := &models.Entry{
		SheetID: 7, Section: "POS", RowIdx: 0, CellKey: "POS_AMOUNT_0",
		RawValue: "1000", CalculatedValue: "1000",
	}
	require.NoError(t, repo.Upsert(context.Background(), tx, again))
	require.NoError(t, tx.Commit())

	assert.Equal(t, int64(41), first.ID)
	assert.Equal(t, first.ID, again.ID)
}

func TestEntryListBySheet(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEntryRepository(db)

	cols := []string{"id", "sheet_id", "section", "row_idx", "cell_key", "raw_value", "calculated_value", "metadata", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY section, row_idx")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, 7, "DEBTOR", 0, "DEBTOR_AMOUNT_0", "200", "200", nil, stamped, stamped).
			AddRow(2, 7, "POS", 0, "POS_AMOUNT_0", "1000", "1000", []byte(`{"a":1}`), stamped, stamped))

	entries, err := repo.ListBySheet(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "DEBTOR_AMOUNT_0", entries[0].CellKey)
	assert.Nil(t, entries[0].Metadata)
	assert.JSONEq(t, `{"a":1}`, string(entries[1].Metadata))
}

func TestEntryDeleteBySheet(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEntryRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM entries WHERE sheet_id = ?")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	count, err := repo.DeleteBySheet(context.Background(), tx, 7)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, int64(5), count)
}

func TestDenominationUpsertAndList(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDenominationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO denominations")).
		WithArgs(int64(7), 500, "₹500", 5, "2500").
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	d := &models.Denomination{
		SheetID: 7, DenominationValue: 500, DenominationLabel: "₹500",
		Pieces: 5, CalculatedAmount: decimal.NewFromInt(2500),
	}
	require.NoError(t, repo.Upsert(context.Background(), tx, d))
	require.NoError(t, tx.Commit())
	assert.Equal(t, int64(9), d.ID)

	cols := []string{"id", "sheet_id", "denomination_value", "denomination_label", "pieces", "calculated_amount", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY denomination_value DESC")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(9, 7, 500, "₹500", 5, "2500.00", stamped, stamped).
			AddRow(10, 7, 0, "Coupons", 3, "0.00", stamped, stamped))

	list, err := repo.ListBySheet(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 500, list[0].DenominationValue)
	assert.True(t, list[0].CalculatedAmount.Equal(decimal.NewFromInt(2500)))
	assert.True(t, list[1].CalculatedAmount.IsZero())
}
