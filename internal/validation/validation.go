// Package validation holds the acceptance rules applied to raw user input
// before it reaches the formula engine or the server.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"daily-sheet-service/internal/cellkey"
)

type Kind string

const (
	KindAmount  Kind = "amount"
	KindPieces  Kind = "pieces"
	KindFormula Kind = "formula"
	KindCellKey Kind = "cellKey"
)

const (
	MaxAmount     = 999999999
	MaxPieces     = 999999
	MaxTextLength = 100
)

// Functions is the fixed formula function set.
var Functions = []string{"SUM", "AVERAGE", "COUNT", "MAX", "MIN", "IF", "AND", "OR"}

var (
	amountPattern   = regexp.MustCompile(`^-?\d+(\.\d{1,2})?$`)
	piecesPattern   = regexp.MustCompile(`^\d+$`)
	functionPattern = regexp.MustCompile(`[A-Z][A-Z0-9_]*\(`)
	cellRefPattern  = regexp.MustCompile(`[A-Z][A-Z_]*_\d+`)

	scriptPattern  = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	stylePattern   = regexp.MustCompile(`(?is)<style\b.*?</style>`)
	jsURIPattern   = regexp.MustCompile(`(?i)javascript:`)
	handlerPattern = regexp.MustCompile(`(?i)on\w+\s*=`)
)

// Result is the outcome of a validation rule. Invalid input is reported
// here rather than as an error.
type Result struct {
	Valid   bool   `json:"isValid"`
	Message string `json:"message,omitempty"`
}

func ok() Result { return Result{Valid: true} }

func fail(format string, args ...any) Result {
	return Result{Valid: false, Message: fmt.Sprintf(format, args...)}
}

type Options struct {
	RowLimit  int
	LookAhead time.Duration
	LookBack  time.Duration
	Now       func() time.Time
}

// DefaultOptions returns a 25 row window, 30 days look-ahead and one year look-back.
func DefaultOptions() Options {
	return Options{
		RowLimit:  cellkey.DefaultRowLimit,
		LookAhead: 30 * 24 * time.Hour,
		LookBack:  365 * 24 * time.Hour,
		Now:       time.Now,
	}
}

type Validator struct {
	opts Options
}

func New(opts Options) *Validator {
	def := DefaultOptions()
	if opts.RowLimit <= 0 {
		opts.RowLimit = def.RowLimit
	}
	if opts.LookAhead <= 0 {
		opts.LookAhead = def.LookAhead
	}
	if opts.LookBack <= 0 {
		opts.LookBack = def.LookBack
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	return &Validator{opts: opts}
}

func (v *Validator) RowLimit() int {
	return v.opts.RowLimit
}

// Validate applies the rule for kind to raw. Empty input is always valid.
func (v *Validator) Validate(raw string, kind Kind) Result {
	if raw == "" {
		return ok()
	}

	switch kind {
	case KindAmount:
		return v.validateAmount(raw)
	case KindPieces:
		return v.validatePieces(raw)
	case KindFormula:
		return v.ValidateFormula(raw)
	case KindCellKey:
		if !cellkey.IsWireKey(raw) {
			return fail("Invalid cell key format")
		}
		return ok()
	}
	return ok()
}

func (v *Validator) validateAmount(raw string) Result {
	if !amountPattern.MatchString(raw) {
		return fail("Please enter a valid amount (e.g., 123.45)")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fail("Please enter a valid amount (e.g., 123.45)")
	}
	if d.Abs().GreaterThan(decimal.NewFromInt(MaxAmount)) {
		return fail("Amount too large (max: 999,999,999)")
	}
	return ok()
}

func (v *Validator) validatePieces(raw string) Result {
	if !piecesPattern.MatchString(raw) {
		return fail("Please enter a valid number of pieces (positive integer)")
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n > MaxPieces {
		return fail("Number too large (max: 999,999)")
	}
	return ok()
}

// ValidateCell dispatches on the shape of raw: formulas get the formula
// rules, everything else must be a number within range.
func (v *Validator) ValidateCell(raw string) Result {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ok()
	}
	if strings.HasPrefix(trimmed, "=") {
		return v.ValidateFormula(trimmed)
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil || strings.Contains(trimmed, ",") {
		return fail("Please enter a valid number")
	}
	if d.Abs().GreaterThan(decimal.NewFromInt(MaxAmount)) {
		return fail("Amount too large (max: 999,999,999)")
	}
	return ok()
}

// IsTextKey reports whether key names a free-text column (SALESMAN, PARTY,
// SRNO) rather than an amount.
func IsTextKey(key string) bool {
	ref, ok := cellkey.Parse(key)
	return ok && ref.Field != cellkey.FieldAmount
}

// ValidateValue applies the rule for the column key belongs to. Text columns
// only have a length limit; amounts and symbolic keys go through ValidateCell.
func (v *Validator) ValidateValue(key, raw string) Result {
	if !IsTextKey(key) {
		return v.ValidateCell(raw)
	}
	if utf8.RuneCountInString(SanitizeString(raw)) > MaxTextLength {
		return fail("Text too long (max: %d characters)", MaxTextLength)
	}
	return ok()
}

// ValidateFormula checks the prefix, parenthesis balance, function names and
// cell references of a formula. Identifiers are matched case-insensitively,
// as the engine reads them.
func (v *Validator) ValidateFormula(formula string) Result {
	formula = strings.ToUpper(formula)
	if !strings.HasPrefix(formula, "=") {
		return fail("Formula must start with =")
	}

	if strings.Count(formula, "(") != strings.Count(formula, ")") {
		return fail("Unbalanced parentheses in formula")
	}

	for _, match := range functionPattern.FindAllString(formula, -1) {
		name := strings.TrimSuffix(match, "(")
		if !isFunction(name) {
			return fail("Unknown function: %s", name)
		}
	}

	for _, ref := range cellRefPattern.FindAllString(formula, -1) {
		if !v.IsValidCellReference(ref) {
			return fail("Invalid cell reference: %s", ref)
		}
	}

	return ok()
}

// IsValidCellReference reports whether ref names a real section and a row
// inside the configured window.
func (v *Validator) IsValidCellReference(ref string) bool {
	parts := strings.Split(ref, "_")
	if len(parts) < 2 {
		return false
	}
	if _, ok := cellkey.ParseSection(parts[0]); !ok {
		return false
	}
	row, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil || row < 0 || row >= v.opts.RowLimit {
		return false
	}
	return true
}

// ValidateDate accepts YYYY-MM-DD dates inside the look-back/look-ahead window.
func (v *Validator) ValidateDate(s string) Result {
	if s == "" {
		return fail("Date is required")
	}
	date, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return fail("Invalid date format")
	}

	now := v.opts.Now()
	if date.After(now.Add(v.opts.LookAhead)) {
		return fail("Date cannot be more than %d days in the future", int(v.opts.LookAhead.Hours()/24))
	}
	if date.Before(now.Add(-v.opts.LookBack)) {
		return fail("Date cannot be more than 1 year in the past")
	}
	return ok()
}

// Sanitize strips script/style blocks, javascript: URIs and inline event
// handler attributes from strings and trims them. Other values pass through.
func Sanitize(value any) any {
	s, isString := value.(string)
	if !isString {
		return value
	}
	return SanitizeString(s)
}

func SanitizeString(s string) string {
	s = scriptPattern.ReplaceAllString(s, "")
	s = stylePattern.ReplaceAllString(s, "")
	s = jsURIPattern.ReplaceAllString(s, "")
	s = handlerPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func isFunction(name string) bool {
	for _, fn := range Functions {
		if fn == name {
			return true
		}
	}
	return false
}
