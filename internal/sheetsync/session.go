package sheetsync

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"daily-sheet-service/internal/cellkey"
	"daily-sheet-service/internal/drafts"
	"daily-sheet-service/internal/formula"
	"daily-sheet-service/internal/models"
	"daily-sheet-service/internal/reconciliation"
)

// Origin records where a session's data was loaded from.
type Origin string

const (
	OriginServer Origin = "server"
	OriginDraft  Origin = "draft"
	OriginBlank  Origin = "blank"
)

// Session is the working copy of one date's sheet.
type Session struct {
	Date          string
	SheetID       int64
	Origin        Origin
	OpeningCash   decimal.Decimal
	Entries       []models.Entry
	Denominations []models.Denomination
}

// Draft converts the session into its parked form.
func (s *Session) Draft() drafts.Draft {
	d := drafts.Draft{
		Date:          s.Date,
		SheetID:       s.SheetID,
		OpeningCash:   s.OpeningCash,
		Entries:       make(map[string]drafts.EntryValue, len(s.Entries)),
		Denominations: make(map[int]drafts.DenominationValue, len(s.Denominations)),
	}
	for _, e := range s.Entries {
		d.Entries[e.CellKey] = drafts.EntryValue{RawValue: e.RawValue, CalculatedValue: e.CalculatedValue}
	}
	for _, den := range s.Denominations {
		d.Denominations[den.DenominationValue] = drafts.DenominationValue{Pieces: den.Pieces, Amount: den.CalculatedAmount}
	}
	return d
}

// applyDraft replaces the session data with the draft's. Only row-indexed
// cells are restored; derived totals are recomputed on Calculate.
func (s *Session) applyDraft(d drafts.Draft) {
	if !d.OpeningCash.IsZero() {
		s.OpeningCash = d.OpeningCash
	}

	keys := make([]string, 0, len(d.Entries))
	for key := range d.Entries {
		if _, ok := cellkey.Parse(key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	s.Entries = s.Entries[:0]
	for _, key := range keys {
		ref, _ := cellkey.Parse(key)
		v := d.Entries[key]
		s.Entries = append(s.Entries, models.Entry{
			SheetID:         s.SheetID,
			Section:         string(ref.Section),
			RowIdx:          ref.Row,
			CellKey:         key,
			RawValue:        v.RawValue,
			CalculatedValue: v.CalculatedValue,
		})
	}

	values := make([]int, 0, len(d.Denominations))
	for value := range d.Denominations {
		values = append(values, value)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(values)))

	s.Denominations = s.Denominations[:0]
	for _, value := range values {
		s.SetPieces(value, d.Denominations[value].Pieces)
	}
}

// SetCell stores raw under a row-indexed key, replacing any previous value.
// The calculated value is refreshed by Calculate.
func (s *Session) SetCell(key, raw string) error {
	ref, ok := cellkey.Parse(key)
	if !ok {
		return fmt.Errorf("invalid cell key %q", key)
	}
	for i := range s.Entries {
		if s.Entries[i].CellKey == key {
			s.Entries[i].RawValue = raw
			return nil
		}
	}
	s.Entries = append(s.Entries, models.Entry{
		SheetID:  s.SheetID,
		Section:  string(ref.Section),
		RowIdx:   ref.Row,
		CellKey:  key,
		RawValue: raw,
	})
	return nil
}

// SetPieces records a piece count. The amount is always recomputed from the
// denomination value.
func (s *Session) SetPieces(value, pieces int) {
	amount := reconciliation.AmountFor(value, pieces)
	for i := range s.Denominations {
		if s.Denominations[i].DenominationValue == value {
			s.Denominations[i].Pieces = pieces
			s.Denominations[i].CalculatedAmount = amount
			return
		}
	}
	s.Denominations = append(s.Denominations, models.Denomination{
		SheetID:           s.SheetID,
		DenominationValue: value,
		DenominationLabel: reconciliation.Label(value),
		Pieces:            pieces,
		CalculatedAmount:  amount,
	})
	sort.SliceStable(s.Denominations, func(i, j int) bool {
		return s.Denominations[i].DenominationValue > s.Denominations[j].DenominationValue
	})
}

// Calculate evaluates every amount cell, writes the calculated values back
// into the entries and returns the engine with the derived fields installed.
// Text columns keep their raw value. Cells whose raw value is rejected are
// kept and reported in the error.
func (s *Session) Calculate(rowLimit int) (*formula.Engine, error) {
	var amounts []models.Entry
	for i := range s.Entries {
		ref, ok := cellkey.Parse(s.Entries[i].CellKey)
		switch {
		case ok && ref.Field == cellkey.FieldAmount:
			amounts = append(amounts, s.Entries[i])
		case ok:
			s.Entries[i].CalculatedValue = s.Entries[i].RawValue
		}
	}

	engine := formula.New(formula.Options{RowLimit: rowLimit})
	err := engine.LoadFromEntries(amounts)
	for i := range s.Entries {
		if v, ok := engine.CalculatedValue(s.Entries[i].CellKey); ok {
			s.Entries[i].CalculatedValue = v
		}
	}
	return engine, err
}

// Summary reconciles the session on its own, without ledgers.
func (s *Session) Summary(rowLimit int) (reconciliation.Summary, error) {
	engine, err := s.Calculate(rowLimit)
	counts := make([]reconciliation.Count, 0, len(s.Denominations))
	for _, d := range s.Denominations {
		counts = append(counts, reconciliation.Count{Value: d.DenominationValue, Pieces: d.Pieces})
	}
	snapshot := reconciliation.Snapshot{
		OpeningCash:   s.OpeningCash,
		Sections:      reconciliation.SectionsFromValues(engine.Values(), engine.RowLimit()),
		Denominations: counts,
	}
	return reconciliation.Summarize(snapshot), err
}

// ParseDenomination accepts a denomination value or the word "coupons".
func ParseDenomination(s string) (int, error) {
	if s == "coupons" || s == "Coupons" {
		return reconciliation.CouponValue, nil
	}
	value, err := strconv.Atoi(s)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid denomination %q", s)
	}
	return value, nil
}
