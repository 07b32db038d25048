package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage layout of sheet dates.
const DateLayout = "2006-01-02"

// Sheet represents one calendar day's reconciliation record
type Sheet struct {
	ID                 int64            `db:"id" json:"sheetId"`
	Date               string           `db:"sheet_date" json:"date"`
	Note               *string          `db:"sheet_note" json:"note"`
	OpeningCash        decimal.Decimal  `db:"opening_cash" json:"openingCash"`
	ClosingCashAmount  *decimal.Decimal `db:"closing_cash_amount" json:"closingCashAmount,omitempty"`
	SystemExpectedCash *decimal.Decimal `db:"system_expected_cash" json:"systemExpectedCash,omitempty"`
	Difference         *decimal.Decimal `db:"difference" json:"difference,omitempty"`
	IsClosed           bool             `db:"is_closed" json:"isClosed"`
	ClosureNotes       *string          `db:"closure_notes" json:"closureNotes,omitempty"`
	ClosedAt           *time.Time       `db:"closed_at" json:"closedAt,omitempty"`
	CreatedAt          time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updatedAt"`
}

// Entry represents one enterable or derived cell of a sheet
type Entry struct {
	ID              int64           `db:"id" json:"-"`
	SheetID         int64           `db:"sheet_id" json:"-"`
	Section         string          `db:"section" json:"section"`
	RowIdx          int             `db:"row_idx" json:"row_idx"`
	CellKey         string          `db:"cell_key" json:"cell_key"`
	RawValue        string          `db:"raw_value" json:"raw_value"`
	CalculatedValue string          `db:"calculated_value" json:"calculated_value"`
	Metadata        json.RawMessage `db:"metadata" json:"metadata"`
	CreatedAt       time.Time       `db:"created_at" json:"-"`
	UpdatedAt       time.Time       `db:"updated_at" json:"-"`
}

// Denomination represents the physical count of one note or coin value
type Denomination struct {
	ID                int64           `db:"id" json:"-"`
	SheetID           int64           `db:"sheet_id" json:"-"`
	DenominationValue int             `db:"denomination_value" json:"denomination_value"`
	DenominationLabel string          `db:"denomination_label" json:"denomination_label"`
	Pieces            int             `db:"pieces" json:"pieces"`
	CalculatedAmount  decimal.Decimal `db:"calculated_amount" json:"calculated_amount"`
	CreatedAt         time.Time       `db:"created_at" json:"-"`
	UpdatedAt         time.Time       `db:"updated_at" json:"-"`
}

// SheetOverview is a sheet row with its child counts, used by report listings
type SheetOverview struct {
	ID                int64     `json:"id"`
	Date              string    `json:"sheet_date"`
	Note              *string   `json:"sheet_note"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	EntryCount        int       `json:"entry_count"`
	DenominationCount int       `json:"denomination_count"`
}

// Debtor represents a credit sale awaiting collection
type Debtor struct {
	ID               int64           `db:"id" json:"id"`
	Date             string          `db:"debtor_date" json:"date"`
	SerialNo         int             `db:"serial_no" json:"serialNo"`
	PartyName        string          `db:"party_name" json:"partyName"`
	Salesman         string          `db:"salesman" json:"salesman"`
	BillNo           string          `db:"bill_no" json:"billNo"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	Status           string          `db:"status" json:"status"`
	CollectedOn      *string         `db:"collected_on" json:"collectedOn"`
	CollectionSerial *int            `db:"collection_serial" json:"collectionSerial"`
	Notes            string          `db:"notes" json:"notes"`
	CreatedAt        time.Time       `db:"created_at" json:"-"`
}

// Collection represents a payment received against a debtor
type Collection struct {
	ID          int64           `db:"id" json:"id"`
	Date        string          `db:"collection_date" json:"collectionDate"`
	SerialNo    int             `db:"serial_no" json:"serialNo"`
	DebtorID    *int64          `db:"debtor_id" json:"debtorId"`
	PartyName   string          `db:"party_name" json:"partyName"`
	Salesman    string          `db:"salesman" json:"salesman"`
	BillNo      string          `db:"bill_no" json:"billNo"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	PaymentMode string          `db:"payment_mode" json:"paymentMode"`
	Notes       string          `db:"notes" json:"notes"`
	CreatedAt   time.Time       `db:"created_at" json:"-"`
}

// Expense represents cash paid out of the till
type Expense struct {
	ID        int64           `db:"id" json:"id"`
	Date      string          `db:"expense_date" json:"date"`
	Time      string          `db:"expense_time" json:"time"`
	Purpose   string          `db:"purpose" json:"purpose"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Category  string          `db:"category" json:"category"`
	Notes     string          `db:"notes" json:"notes"`
	CreatedAt time.Time       `db:"created_at" json:"-"`
}

// Debtor status constants
const (
	DebtorStatusPending = "Pending"
	DebtorStatusPaid    = "Paid"
)

// Payment mode constants
const (
	PaymentModeCash = "Cash"
	PaymentModeQR   = "QR"
	PaymentModeCard = "Swipe"
)

// Expense category constants
const (
	ExpenseCategoryGeneral = "General"
)

// Overview aggregates counts across all sheets for the reports dashboard
type Overview struct {
	TotalSheets        int            `json:"totalSheets"`
	TotalEntries       int            `json:"totalEntries"`
	TotalDenominations int            `json:"totalDenominations"`
	DateRange          DateRange      `json:"dateRange"`
	RecentActivity     RecentActivity `json:"recentActivity"`
}

type DateRange struct {
	Earliest *string `json:"earliest"`
	Latest   *string `json:"latest"`
}

type RecentActivity struct {
	Last7Days ActivityCounts `json:"last7Days"`
}

type ActivityCounts struct {
	Sheets        int `json:"sheets"`
	Entries       int `json:"entries"`
	Denominations int `json:"denominations"`
}

// Closing carries the figures recorded when a day is closed
type Closing struct {
	ClosingCashAmount  decimal.Decimal
	SystemExpectedCash decimal.Decimal
	Difference         decimal.Decimal
	Notes              *string
	ClosedAt           time.Time
}
