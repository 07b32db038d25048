package validation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"daily-sheet-service/internal/cellkey"
	"daily-sheet-service/internal/models"
)

var amountTolerance = decimal.New(1, -2)

// ValidateEntry checks a single entry before it is saved.
func (v *Validator) ValidateEntry(entry models.Entry) []string {
	var errs []string

	if entry.Section == "" {
		errs = append(errs, "Section is required")
	} else if _, ok := cellkey.ParseSection(entry.Section); !ok {
		errs = append(errs, "Invalid section")
	}

	if entry.RowIdx < 0 || entry.RowIdx >= v.opts.RowLimit {
		errs = append(errs, "Invalid row index")
	}

	if !cellkey.IsSymbolic(entry.CellKey) && !v.IsValidCellReference(entry.CellKey) {
		errs = append(errs, "Invalid cell key")
	} else if ref, ok := cellkey.Parse(entry.CellKey); ok &&
		(string(ref.Section) != entry.Section || ref.Row != entry.RowIdx) {
		errs = append(errs, "Cell key does not match section and row")
	}

	if entry.RawValue != "" {
		if res := v.ValidateValue(entry.CellKey, entry.RawValue); !res.Valid {
			errs = append(errs, res.Message)
		}
	}

	return errs
}

// ValidateDenomination checks the piece count and the stored amount of a
// denomination row.
func (v *Validator) ValidateDenomination(d models.Denomination) []string {
	var errs []string

	if d.DenominationValue < 0 {
		errs = append(errs, "Denomination value must be a non-negative number")
	}
	if d.Pieces < 0 {
		errs = append(errs, "Pieces must be a non-negative number")
	} else if d.Pieces > MaxPieces {
		errs = append(errs, "Number too large (max: 999,999)")
	}
	if d.CalculatedAmount.IsNegative() {
		errs = append(errs, "Calculated amount must be a non-negative number")
	}

	expected := decimal.NewFromInt(int64(d.DenominationValue) * int64(d.Pieces))
	if d.CalculatedAmount.Sub(expected).Abs().GreaterThan(amountTolerance) {
		errs = append(errs, "Calculated amount does not match pieces × denomination")
	}

	return errs
}

// SheetResult aggregates per-row errors of a whole sheet.
type SheetResult struct {
	Valid  bool     `json:"isValid"`
	Errors []string `json:"errors"`
}

// ValidateSheetData validates every entry and denomination of a sheet.
func (v *Validator) ValidateSheetData(entries []models.Entry, denominations []models.Denomination) SheetResult {
	var errs []string

	for i, entry := range entries {
		if entryErrs := v.ValidateEntry(entry); len(entryErrs) > 0 {
			errs = append(errs, fmt.Sprintf("Entry %d: %s", i+1, strings.Join(entryErrs, ", ")))
		}
	}

	for i, denom := range denominations {
		if denomErrs := v.ValidateDenomination(denom); len(denomErrs) > 0 {
			errs = append(errs, fmt.Sprintf("Denomination %d: %s", i+1, strings.Join(denomErrs, ", ")))
		}
	}

	return SheetResult{Valid: len(errs) == 0, Errors: errs}
}
