package matching

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daily-sheet-service/internal/models"
)

func debtor(id int64, date, party, bill string, amount int64) models.Debtor {
	return models.Debtor{
		ID:        id,
		Date:      date,
		PartyName: party,
		BillNo:    bill,
		Amount:    decimal.NewFromInt(amount),
		Status:    models.DebtorStatusPending,
	}
}

func TestPerfectMatchIsReturnedAlone(t *testing.T) {
	engine := NewMatchEngine([]models.Debtor{
		debtor(1, "2024-01-20", "Ravi Traders", "B0001", 1500),
		debtor(2, "2024-01-21", "Ravi Traders", "B0002", 1500),
	})

	results := engine.Suggest(Payment{
		Date:      "2024-01-27",
		Amount:    decimal.NewFromInt(1500),
		PartyName: "ravi traders",
		BillNo:    "b0001",
	}, 0)

	require.Len(t, results, 1)
	assert.Equal(t, MatchOneToOne, results[0].Type)
	assert.Equal(t, PerfectMatchConfidence, results[0].Confidence)
	assert.Equal(t, int64(1), results[0].Debtors[0].ID)
	assert.Equal(t, []string{"amount", "bill", "party", "date"}, results[0].MatchCriteria)
}

func TestConflictingBillOrPartyRejects(t *testing.T) {
	engine := NewMatchEngine([]models.Debtor{debtor(1, "2024-01-20", "Ravi Traders", "B0001", 1500)})

	assert.Empty(t, engine.Suggest(Payment{Date: "2024-01-27", Amount: decimal.NewFromInt(1500), PartyName: "Ravi Traders", BillNo: "B0009"}, 0))
	assert.Empty(t, engine.Suggest(Payment{Date: "2024-01-27", Amount: decimal.NewFromInt(1500), PartyName: "Kumar Stores"}, 0))
}

func TestPaymentBeforeSaleRejects(t *testing.T) {
	engine := NewMatchEngine([]models.Debtor{debtor(1, "2024-01-20", "Ravi Traders", "", 1500)})

	assert.Empty(t, engine.Suggest(Payment{Date: "2024-01-19", Amount: decimal.NewFromInt(1500), PartyName: "Ravi Traders"}, 0))
}

func TestPaidDebtorsAreIgnored(t *testing.T) {
	paid := debtor(1, "2024-01-20", "Ravi Traders", "B0001", 1500)
	paid.Status = models.DebtorStatusPaid
	engine := NewMatchEngine([]models.Debtor{paid})

	assert.Empty(t, engine.Suggest(Payment{Date: "2024-01-27", Amount: decimal.NewFromInt(1500), BillNo: "B0001"}, 0))
}

func TestOneToManySettlesSeveralBillsOfOneParty(t *testing.T) {
	engine := NewMatchEngine([]models.Debtor{
		debtor(1, "2024-01-20", "Kumar Stores", "B0001", 500),
		debtor(2, "2024-01-22", "Kumar Stores", "B0002", 700),
		debtor(3, "2024-01-23", "Kumar Stores", "B0003", 300),
		debtor(4, "2024-01-23", "Ravi Traders", "B0004", 700),
	})

	results := engine.Suggest(Payment{Date: "2024-01-27", Amount: decimal.NewFromInt(1200), PartyName: "Kumar Stores"}, 0)

	require.Len(t, results, 1)
	assert.Equal(t, MatchOneToMany, results[0].Type)
	assert.Equal(t, HighMatchConfidence, results[0].Confidence)
	require.Len(t, results[0].Debtors, 2)
	assert.Equal(t, int64(1), results[0].Debtors[0].ID)
	assert.Equal(t, int64(2), results[0].Debtors[1].ID)
	assert.True(t, results[0].AmountDifference.IsZero())
}

func TestSuggestOrdersByConfidenceAndLimits(t *testing.T) {
	engine := NewMatchEngine([]models.Debtor{
		debtor(1, "2024-01-25", "Ravi Traders", "", 995),
		debtor(2, "2024-01-20", "Ravi Traders", "", 1000),
	})
	payment := Payment{Date: "2024-01-27", Amount: decimal.NewFromInt(1000), PartyName: "Ravi Traders"}

	results := engine.Suggest(payment, 0)
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].Debtors[0].ID)
	assert.Equal(t, 0.7, results[0].Confidence)
	assert.Equal(t, int64(1), results[1].Debtors[0].ID)
	assert.Equal(t, 0.6, results[1].Confidence)

	assert.Len(t, engine.Suggest(payment, 1), 1)
}

func TestNonPositivePaymentHasNoMatches(t *testing.T) {
	engine := NewMatchEngine([]models.Debtor{debtor(1, "2024-01-20", "Ravi Traders", "", 0)})
	assert.Nil(t, engine.Suggest(Payment{Date: "2024-01-27", Amount: decimal.Zero}, 0))
}
