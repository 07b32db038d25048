package ledger

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"daily-sheet-service/internal/models"
)

// Totals is the pending/collected split over a set of debtors.
type Totals struct {
	Pending        decimal.Decimal `json:"pending"`
	PendingCount   int             `json:"pendingCount"`
	Collected      decimal.Decimal `json:"collected"`
	CollectedCount int             `json:"collectedCount"`
}

func DebtorTotals(debtors []models.Debtor) Totals {
	t := Totals{Pending: decimal.Zero, Collected: decimal.Zero}
	for _, d := range debtors {
		switch d.Status {
		case models.DebtorStatusPending:
			t.Pending = t.Pending.Add(d.Amount)
			t.PendingCount++
		case models.DebtorStatusPaid:
			t.Collected = t.Collected.Add(d.Amount)
			t.CollectedCount++
		}
	}
	return t
}

// Search matches the query case-insensitively against party name, bill
// number and salesman.
func Search(debtors []models.Debtor, query string) []models.Debtor {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return debtors
	}
	var out []models.Debtor
	for _, d := range debtors {
		if strings.Contains(strings.ToLower(d.PartyName), q) ||
			strings.Contains(strings.ToLower(d.BillNo), q) ||
			strings.Contains(strings.ToLower(d.Salesman), q) {
			out = append(out, d)
		}
	}
	return out
}

func CollectionTotal(collections []models.Collection) decimal.Decimal {
	total := decimal.Zero
	for _, c := range collections {
		total = total.Add(c.Amount)
	}
	return total
}

func ExpenseTotal(expenses []models.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// WriteDebtorsCSV writes the debtor book in the shop's export layout.
func WriteDebtorsCSV(w io.Writer, debtors []models.Debtor) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Serial", "Date", "Party Name", "Salesman", "Bill No", "Amount", "Status", "Collected On"}); err != nil {
		return err
	}
	for _, d := range debtors {
		collected := "-"
		if d.CollectedOn != nil {
			collected = *d.CollectedOn
		}
		record := []string{
			strconv.Itoa(d.SerialNo),
			d.Date,
			d.PartyName,
			d.Salesman,
			d.BillNo,
			d.Amount.StringFixed(2),
			d.Status,
			collected,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCollectionsCSV writes the collection book in the shop's export layout.
func WriteCollectionsCSV(w io.Writer, collections []models.Collection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Collection Date", "Serial", "Party Name", "Salesman", "Bill No", "Amount", "Payment Mode"}); err != nil {
		return err
	}
	for _, c := range collections {
		record := []string{
			c.Date,
			strconv.Itoa(c.SerialNo),
			c.PartyName,
			c.Salesman,
			c.BillNo,
			c.Amount.StringFixed(2),
			c.PaymentMode,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
