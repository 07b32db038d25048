// Package reconciliation computes the daily cash position from a snapshot of
// section amounts, the physical denomination count and today's ledgers.
package reconciliation

import (
	"github.com/shopspring/decimal"

	"daily-sheet-service/internal/cellkey"
)

// Tolerance is the largest difference still reported as balanced.
var Tolerance = decimal.New(1, -2)

// Snapshot is everything the calculator reads. Section slices hold the
// amount column values of each section in row order.
type Snapshot struct {
	OpeningCash      decimal.Decimal
	Sections         map[cellkey.Section][]decimal.Decimal
	Denominations    []Count
	ExpensesToday    decimal.Decimal
	CollectionsToday decimal.Decimal
	CollectionsCount int
	PendingDebtors   int
}

type Summary struct {
	OpeningCash       decimal.Decimal `json:"openingCash"`
	TotalSale         decimal.Decimal `json:"totalSale"`
	DebitCash         decimal.Decimal `json:"debitCash"`
	TotalExpenses     decimal.Decimal `json:"totalExpenses"`
	AvailableCash     decimal.Decimal `json:"availableCash"`
	QRTotal           decimal.Decimal `json:"qrTotal"`
	SwipeTotal        decimal.Decimal `json:"swipeTotal"`
	SwipeCount        int             `json:"swipeCount"`
	DebtorsTotal      decimal.Decimal `json:"debtorsTotal"`
	DebtorsCount      int             `json:"debtorsCount"`
	NetAmount         decimal.Decimal `json:"netAmount"`
	DenominationTotal decimal.Decimal `json:"denominationTotal"`
	CollectionsTotal  decimal.Decimal `json:"collectionsTotal"`
	CollectionsCount  int             `json:"collectionsCount"`
	TotalCollection   decimal.Decimal `json:"totalCollection"`
	Difference        decimal.Decimal `json:"difference"`
	Balanced          bool            `json:"isBalanced"`
}

// SectionTotal sums the strictly positive values of a column and counts them.
// Zero and negative amounts are stored but never contribute.
func SectionTotal(values []decimal.Decimal) (decimal.Decimal, int) {
	total := decimal.Zero
	count := 0
	for _, v := range values {
		if v.IsPositive() {
			total = total.Add(v)
			count++
		}
	}
	return total, count
}

func Summarize(s Snapshot) Summary {
	totalSale, _ := SectionTotal(s.Sections[cellkey.SectionPOS])
	qrTotal, _ := SectionTotal(s.Sections[cellkey.SectionKQR])
	swipeTotal, swipeCount := SectionTotal(s.Sections[cellkey.SectionKSW])
	debtorsTotal, debtorsCount := SectionTotal(s.Sections[cellkey.SectionDebtor])

	debitCash := s.OpeningCash.Add(totalSale)
	netAmount := debitCash.Sub(qrTotal.Add(swipeTotal).Add(debtorsTotal))
	denominationTotal := DenominationTotal(s.Denominations)
	difference := netAmount.Sub(denominationTotal)

	return Summary{
		OpeningCash:       s.OpeningCash,
		TotalSale:         totalSale,
		DebitCash:         debitCash,
		TotalExpenses:     s.ExpensesToday,
		AvailableCash:     debitCash.Sub(s.ExpensesToday),
		QRTotal:           qrTotal,
		SwipeTotal:        swipeTotal,
		SwipeCount:        swipeCount,
		DebtorsTotal:      debtorsTotal,
		DebtorsCount:      debtorsCount,
		NetAmount:         netAmount,
		DenominationTotal: denominationTotal,
		CollectionsTotal:  s.CollectionsToday,
		CollectionsCount:  s.CollectionsCount,
		TotalCollection:   denominationTotal.Add(qrTotal).Add(swipeTotal).Add(s.CollectionsToday),
		Difference:        difference,
		Balanced:          IsBalanced(difference),
	}
}

// IsBalanced reports whether |diff| is within Tolerance.
func IsBalanced(diff decimal.Decimal) bool {
	return diff.Abs().LessThanOrEqual(Tolerance)
}
