// Package drafts keeps unsaved sheet state per date as a crash and offline
// safety net. A draft is never a second source of truth once the server has
// data for the date.
package drafts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("draft not found")

type EntryValue struct {
	RawValue        string `json:"rawValue"`
	CalculatedValue string `json:"calculatedValue"`
}

type DenominationValue struct {
	Pieces int             `json:"pieces"`
	Amount decimal.Decimal `json:"amount"`
}

// Draft is the locally parked state of one date's sheet.
type Draft struct {
	Date          string                    `json:"date"`
	SheetID       int64                     `json:"sheetId,omitempty"`
	OpeningCash   decimal.Decimal           `json:"openingCash"`
	Entries       map[string]EntryValue     `json:"entries"`
	Denominations map[int]DenominationValue `json:"denominations"`
	Timestamp     int64                     `json:"timestamp"`
	SavedAt       time.Time                 `json:"savedAt"`
}

// IsEmpty reports whether the draft carries no cell or denomination data.
func (d Draft) IsEmpty() bool {
	return len(d.Entries) == 0 && len(d.Denominations) == 0
}

// Store persists drafts keyed by date.
type Store interface {
	Save(ctx context.Context, d Draft) error
	Load(ctx context.Context, date string) (Draft, error)
	Clear(ctx context.Context, date string) error
	List(ctx context.Context) ([]string, error)
	// Cleanup removes drafts saved more than maxAge ago and returns how many
	// were removed.
	Cleanup(ctx context.Context, maxAge time.Duration) (int, error)
}

// DefaultMaxAge is how long a draft is kept.
const DefaultMaxAge = 7 * 24 * time.Hour

// Key returns the storage key of a date's draft.
func Key(date string) string {
	return fmt.Sprintf("dailysheet-%s-draft", date)
}
