// Package ledger holds the rules for the shop's side books: credit sales
// (debtors), payments received against them (collections) and cash paid out
// of the till (expenses).
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"daily-sheet-service/internal/models"
)

var (
	// ErrAlreadyPaid is returned when a collection targets a debtor that is
	// no longer pending.
	ErrAlreadyPaid = errors.New("debtor already paid")
	// ErrPartyMismatch is returned when a collection names a different party
	// than the debtor it is linked to.
	ErrPartyMismatch = errors.New("collection party does not match debtor")
)

// MaxAmount matches the largest amount the sheet grid accepts.
var MaxAmount = decimal.NewFromInt(999999999)

// ValidationError describes one rejected ledger field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var paymentModes = []string{models.PaymentModeCash, models.PaymentModeQR, models.PaymentModeCard}

// PaymentModes lists the accepted collection payment modes.
func PaymentModes() []string {
	return append([]string(nil), paymentModes...)
}

func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &ValidationError{Field: "amount", Message: "must be greater than zero"}
	}
	if amount.GreaterThan(MaxAmount) {
		return &ValidationError{Field: "amount", Message: "exceeds maximum allowed value"}
	}
	if !amount.Equal(amount.Round(2)) {
		return &ValidationError{Field: "amount", Message: "must have at most 2 decimal places"}
	}
	return nil
}

func checkDate(date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return &ValidationError{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	return nil
}

func dateOr(date string, now time.Time) string {
	if date = strings.TrimSpace(date); date != "" {
		return date
	}
	return now.Format(models.DateLayout)
}

// NewDebtor normalises a credit sale before it is stored. The date defaults
// to today and the bill number to one derived from the serial.
func NewDebtor(d models.Debtor, now time.Time) (models.Debtor, error) {
	d.Date = dateOr(d.Date, now)
	d.PartyName = strings.TrimSpace(d.PartyName)
	d.Salesman = strings.TrimSpace(d.Salesman)
	d.BillNo = strings.TrimSpace(d.BillNo)

	if err := checkDate(d.Date); err != nil {
		return models.Debtor{}, err
	}
	if d.PartyName == "" {
		return models.Debtor{}, &ValidationError{Field: "partyName", Message: "is required"}
	}
	if err := checkAmount(d.Amount); err != nil {
		return models.Debtor{}, err
	}
	if d.SerialNo <= 0 {
		return models.Debtor{}, &ValidationError{Field: "serialNo", Message: "must be positive"}
	}
	if d.BillNo == "" {
		d.BillNo = fmt.Sprintf("B%04d", d.SerialNo)
	}

	d.Status = models.DebtorStatusPending
	d.CollectedOn = nil
	d.CollectionSerial = nil
	return d, nil
}

// NewCollection normalises a payment record. The payment mode defaults to
// cash and must be one of PaymentModes.
func NewCollection(c models.Collection, now time.Time) (models.Collection, error) {
	c.Date = dateOr(c.Date, now)
	c.PartyName = strings.TrimSpace(c.PartyName)
	c.Salesman = strings.TrimSpace(c.Salesman)
	c.BillNo = strings.TrimSpace(c.BillNo)
	if c.PaymentMode == "" {
		c.PaymentMode = models.PaymentModeCash
	}

	if err := checkDate(c.Date); err != nil {
		return models.Collection{}, err
	}
	if c.PartyName == "" {
		return models.Collection{}, &ValidationError{Field: "partyName", Message: "is required"}
	}
	if err := checkAmount(c.Amount); err != nil {
		return models.Collection{}, err
	}
	if c.SerialNo <= 0 {
		return models.Collection{}, &ValidationError{Field: "serialNo", Message: "must be positive"}
	}

	valid := false
	for _, mode := range paymentModes {
		if strings.EqualFold(mode, c.PaymentMode) {
			c.PaymentMode = mode
			valid = true
			break
		}
	}
	if !valid {
		return models.Collection{}, &ValidationError{
			Field:   "paymentMode",
			Message: "must be one of " + strings.Join(paymentModes, ", "),
		}
	}
	return c, nil
}

// NewExpense normalises a till payout. Time defaults to the current clock
// time and category to General.
func NewExpense(e models.Expense, now time.Time) (models.Expense, error) {
	e.Date = dateOr(e.Date, now)
	e.Purpose = strings.TrimSpace(e.Purpose)
	e.Category = strings.TrimSpace(e.Category)
	if e.Time == "" {
		e.Time = now.Format("15:04")
	}
	if e.Category == "" {
		e.Category = models.ExpenseCategoryGeneral
	}

	if err := checkDate(e.Date); err != nil {
		return models.Expense{}, err
	}
	if e.Purpose == "" {
		return models.Expense{}, &ValidationError{Field: "purpose", Message: "is required"}
	}
	if err := checkAmount(e.Amount); err != nil {
		return models.Expense{}, err
	}
	return e, nil
}

// Settle marks d as paid by c. A debtor moves from Pending to Paid exactly
// once.
func Settle(d *models.Debtor, c models.Collection) error {
	if d.Status != models.DebtorStatusPending {
		return ErrAlreadyPaid
	}
	if c.PartyName != "" && !strings.EqualFold(c.PartyName, d.PartyName) {
		return ErrPartyMismatch
	}
	date := c.Date
	serial := c.SerialNo
	d.Status = models.DebtorStatusPaid
	d.CollectedOn = &date
	d.CollectionSerial = &serial
	return nil
}
