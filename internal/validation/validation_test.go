package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"daily-sheet-service/internal/models"
)

func newTestValidator() *Validator {
	now := time.Date(2024, 1, 26, 10, 0, 0, 0, time.Local)
	return New(Options{Now: func() time.Time { return now }})
}

func TestValidate(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		raw     string
		kind    Kind
		valid   bool
		message string
	}{
		{name: "empty amount", raw: "", kind: KindAmount, valid: true},
		{name: "integer amount", raw: "1000", kind: KindAmount, valid: true},
		{name: "negative amount", raw: "-12.5", kind: KindAmount, valid: true},
		{name: "three fraction digits", raw: "1.234", kind: KindAmount, valid: false},
		{name: "thousands separator", raw: "1,000", kind: KindAmount, valid: false},
		{name: "amount too large", raw: "1000000000", kind: KindAmount, valid: false, message: "Amount too large (max: 999,999,999)"},
		{name: "max amount", raw: "999999999", kind: KindAmount, valid: true},
		{name: "pieces", raw: "15", kind: KindPieces, valid: true},
		{name: "negative pieces", raw: "-1", kind: KindPieces, valid: false},
		{name: "fractional pieces", raw: "1.5", kind: KindPieces, valid: false},
		{name: "pieces too large", raw: "1000000", kind: KindPieces, valid: false},
		{name: "cell key", raw: "POS_AMOUNT_3", kind: KindCellKey, valid: true},
		{name: "symbolic cell key", raw: "TOTAL_SALE", kind: KindCellKey, valid: true},
		{name: "bad cell key", raw: "pos-3", kind: KindCellKey, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(tt.raw, tt.kind)
			assert.Equal(t, tt.valid, res.Valid, res.Message)
			if tt.message != "" {
				assert.Equal(t, tt.message, res.Message)
			}
		})
	}
}

func TestValidateFormula(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		formula string
		valid   bool
		message string
	}{
		{formula: "=SUM(A1:A10", valid: false, message: "Unbalanced parentheses in formula"},
		{formula: "=INVALID_FUNC(POS_AMOUNT_0)", valid: false, message: "Unknown function: INVALID_FUNC"},
		{formula: "=POS_AMOUNT_999", valid: false, message: "Invalid cell reference: POS_AMOUNT_999"},
		{formula: "=FOO_AMOUNT_1", valid: false, message: "Invalid cell reference: FOO_AMOUNT_1"},
		{formula: "=POS_AMOUNT_0 + KQR_AMOUNT_0", valid: true},
		{formula: "=SUM(POS_AMOUNT_0:POS_AMOUNT_24)", valid: true},
		{formula: "=IF(AND(POS_AMOUNT_0>1, OR(KSW_AMOUNT_1<2, 1)), MAX(1,2), MIN(3,4))", valid: true},
		{formula: "=TOTAL_SALE - SUM(DEBTOR_AMOUNT_0:DEBTOR_AMOUNT_24)", valid: true},
		{formula: "SUM(1)", valid: false, message: "Formula must start with ="},
	}

	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			res := v.Validate(tt.formula, KindFormula)
			assert.Equal(t, tt.valid, res.Valid, res.Message)
			if tt.message != "" {
				assert.Equal(t, tt.message, res.Message)
			}
		})
	}
}

func TestValidateFormulaHonoursRowLimit(t *testing.T) {
	v := New(Options{RowLimit: 50})
	assert.True(t, v.ValidateFormula("=POS_AMOUNT_49").Valid)
	assert.False(t, v.ValidateFormula("=POS_AMOUNT_50").Valid)
}

func TestValidateCell(t *testing.T) {
	v := newTestValidator()

	assert.True(t, v.ValidateCell("  ").Valid)
	assert.True(t, v.ValidateCell("250.75").Valid)
	assert.True(t, v.ValidateCell(" =POS_AMOUNT_1*2 ").Valid)
	assert.False(t, v.ValidateCell("abc").Valid)
	assert.False(t, v.ValidateCell("1,000").Valid)
	assert.False(t, v.ValidateCell("-1000000000").Valid)
}

func TestValidateDate(t *testing.T) {
	v := newTestValidator()

	assert.True(t, v.ValidateDate("2024-01-26").Valid)
	assert.True(t, v.ValidateDate("2024-02-20").Valid)
	assert.True(t, v.ValidateDate("2023-03-01").Valid)

	res := v.ValidateDate("2024-03-01")
	assert.False(t, res.Valid)
	assert.Equal(t, "Date cannot be more than 30 days in the future", res.Message)

	res = v.ValidateDate("2022-12-31")
	assert.False(t, res.Valid)
	assert.Equal(t, "Date cannot be more than 1 year in the past", res.Message)

	assert.False(t, v.ValidateDate("26/01/2024").Valid)
	assert.False(t, v.ValidateDate("").Valid)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "hello", Sanitize(`  hello<script>alert("x")</script> `))
	assert.Equal(t, "body", Sanitize(`<style>p{}</style>body`))
	assert.Equal(t, "alert(1)", Sanitize("javascript:alert(1)"))
	assert.Equal(t, `<img "x()">`, Sanitize(`<img onerror="x()">`))
	assert.Equal(t, 42, Sanitize(42))
	assert.Nil(t, Sanitize(nil))
}

func TestValidateSheetData(t *testing.T) {
	v := newTestValidator()

	entries := []models.Entry{
		{Section: "POS", RowIdx: 0, CellKey: "POS_AMOUNT_0", RawValue: "1000"},
		{Section: "BAD", RowIdx: 30, CellKey: "BAD_AMOUNT_30", RawValue: "x"},
	}
	denominations := []models.Denomination{
		{DenominationValue: 500, Pieces: 4, CalculatedAmount: decimal.NewFromInt(2000)},
		{DenominationValue: 0, Pieces: 15, CalculatedAmount: decimal.Zero},
		{DenominationValue: 100, Pieces: 3, CalculatedAmount: decimal.NewFromInt(250)},
	}

	res := v.ValidateSheetData(entries, denominations)
	assert.False(t, res.Valid)
	assert.Len(t, res.Errors, 2)
	assert.Equal(t, "Entry 2: Invalid section, Invalid row index, Invalid cell key, Please enter a valid number", res.Errors[0])
	assert.Equal(t, "Denomination 3: Calculated amount does not match pieces × denomination", res.Errors[1])
}

func TestValidateEntryAcceptsSymbolicKeys(t *testing.T) {
	v := newTestValidator()

	assert.Empty(t, v.ValidateEntry(models.Entry{
		Section:  "POS",
		CellKey:  "TOTAL_SALE",
		RawValue: "=SUM(POS_AMOUNT_0:POS_AMOUNT_24)",
	}))
	assert.Empty(t, v.ValidateEntry(models.Entry{Section: "DEBTOR", RowIdx: 2, CellKey: "DEBTOR_PARTY_2"}))
	assert.Equal(t, []string{"Invalid cell key"}, v.ValidateEntry(models.Entry{Section: "POS", CellKey: ""}))
	assert.Equal(t, []string{"Invalid cell key"}, v.ValidateEntry(models.Entry{Section: "POS", CellKey: "POS_AMOUNT_25"}))
}

func TestValidateValue(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		key     string
		raw     string
		valid   bool
		message string
	}{
		{name: "party name", key: "DEBTOR_PARTY_0", raw: "Ravi Traders", valid: true},
		{name: "salesman name", key: "KQR_SALESMAN_0", raw: "Amit", valid: true},
		{name: "serial text", key: "POS_SRNO_3", raw: "B-0042", valid: true},
		{name: "name too long", key: "DEBTOR_PARTY_0", raw: strings.Repeat("a", MaxTextLength+1), valid: false, message: "Text too long (max: 100 characters)"},
		{name: "script does not count", key: "DEBTOR_PARTY_0", raw: strings.Repeat("a", MaxTextLength) + "<script>x</script>", valid: true},
		{name: "amount text", key: "POS_AMOUNT_0", raw: "Ravi", valid: false, message: "Please enter a valid number"},
		{name: "amount formula", key: "POS_AMOUNT_0", raw: "=1000+500", valid: true},
		{name: "symbolic formula", key: "TOTAL_SALE", raw: "=SUM(POS_AMOUNT_0:POS_AMOUNT_24)", valid: true},
		{name: "symbolic text", key: "NET_AMOUNT", raw: "Ravi", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.ValidateValue(tt.key, tt.raw)
			assert.Equal(t, tt.valid, res.Valid, res.Message)
			if tt.message != "" {
				assert.Equal(t, tt.message, res.Message)
			}
		})
	}
}

func TestValidateEntryTextColumns(t *testing.T) {
	v := newTestValidator()

	assert.Empty(t, v.ValidateEntry(models.Entry{Section: "DEBTOR", RowIdx: 0, CellKey: "DEBTOR_PARTY_0", RawValue: "Ravi Traders"}))
	assert.Empty(t, v.ValidateEntry(models.Entry{Section: "KQR", RowIdx: 0, CellKey: "KQR_SALESMAN_0", RawValue: "Amit"}))
	assert.Equal(t, []string{"Please enter a valid number"},
		v.ValidateEntry(models.Entry{Section: "DEBTOR", RowIdx: 0, CellKey: "DEBTOR_AMOUNT_0", RawValue: "Ravi Traders"}))
}

func TestValidateEntryKeyMustMatchSectionAndRow(t *testing.T) {
	v := newTestValidator()

	mismatch := []string{"Cell key does not match section and row"}
	assert.Equal(t, mismatch, v.ValidateEntry(models.Entry{Section: "POS", RowIdx: 0, CellKey: "KQR_AMOUNT_3", RawValue: "1"}))
	assert.Equal(t, mismatch, v.ValidateEntry(models.Entry{Section: "KQR", RowIdx: 0, CellKey: "KQR_AMOUNT_3", RawValue: "1"}))
	assert.Empty(t, v.ValidateEntry(models.Entry{Section: "KQR", RowIdx: 3, CellKey: "KQR_AMOUNT_3", RawValue: "1"}))
}

func TestValidateFormulaIgnoresCase(t *testing.T) {
	v := newTestValidator()

	assert.True(t, v.ValidateFormula("=sum(pos_amount_0:pos_amount_24)").Valid)

	res := v.ValidateFormula("=foo(pos_amount_0)")
	assert.False(t, res.Valid)
	assert.Equal(t, "Unknown function: FOO", res.Message)

	res = v.ValidateFormula("=pos_amount_99")
	assert.False(t, res.Valid)
	assert.Equal(t, "Invalid cell reference: POS_AMOUNT_99", res.Message)
}
