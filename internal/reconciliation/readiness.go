package reconciliation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Check struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// Readiness is the day-close checklist.
type Readiness struct {
	CanClose bool    `json:"canClose"`
	Checks   []Check `json:"checks"`
}

// CloseReadiness evaluates the day-close checklist. Pending debtors are
// reported but never block closing.
func CloseReadiness(s Snapshot) Readiness {
	summary := Summarize(s)
	var checks []Check

	if s.OpeningCash.IsZero() {
		checks = append(checks, Check{Name: "Opening Cash", Message: "Opening cash not entered"})
	} else {
		checks = append(checks, Check{Name: "Opening Cash", Passed: true, Message: "✓ " + FormatINR(s.OpeningCash)})
	}

	if summary.DenominationTotal.IsZero() {
		checks = append(checks, Check{Name: "Denominations", Message: "Please count and enter denominations"})
	} else {
		checks = append(checks, Check{Name: "Denominations", Passed: true, Message: "✓ " + FormatINR(summary.DenominationTotal)})
	}

	if summary.Balanced {
		checks = append(checks, Check{Name: "Cash Balance", Passed: true, Message: "✓ Balanced"})
	} else {
		checks = append(checks, Check{
			Name:    "Cash Balance",
			Message: fmt.Sprintf("Difference is %s. Must be %s", FormatINR(summary.Difference), FormatINR(decimal.Zero)),
		})
	}

	pending := Check{Name: "Pending Debtors", Passed: true, Message: "✓ No pending debtors"}
	if s.PendingDebtors > 0 {
		pending.Message = fmt.Sprintf("%d debtor(s) pending (OK to close)", s.PendingDebtors)
	}
	checks = append(checks, pending)

	canClose := true
	for _, c := range checks {
		canClose = canClose && c.Passed
	}
	return Readiness{CanClose: canClose, Checks: checks}
}
