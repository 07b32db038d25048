// Package cellkey implements the canonical naming scheme for sheet cells.
//
// Row-indexed keys have the shape SECTION_FIELD_ROW (for example POS_AMOUNT_3).
// Symbolic keys (TOTAL_SALE, NET_AMOUNT, POS_TOTAL) carry no trailing row index
// and therefore can never collide with a generated key.
package cellkey

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Section string

const (
	SectionPOS    Section = "POS"
	SectionKQR    Section = "KQR"
	SectionKSW    Section = "KSW"
	SectionDebtor Section = "DEBTOR"
)

// Sections lists the sections in grid order.
var Sections = []Section{SectionPOS, SectionKQR, SectionKSW, SectionDebtor}

type Field string

const (
	FieldAmount   Field = "AMOUNT"
	FieldSalesman Field = "SALESMAN"
	FieldParty    Field = "PARTY"
	FieldSrNo     Field = "SRNO"
)

// Symbolic keys for derived values.
const (
	TotalSale = "TOTAL_SALE"
	NetAmount = "NET_AMOUNT"
)

// DefaultRowLimit is the number of rows per section when not configured.
const DefaultRowLimit = 25

var sectionFields = map[Section][]Field{
	SectionPOS:    {FieldSrNo, FieldAmount},
	SectionKQR:    {FieldSrNo, FieldSalesman, FieldAmount},
	SectionKSW:    {FieldSrNo, FieldSalesman, FieldAmount},
	SectionDebtor: {FieldSrNo, FieldSalesman, FieldParty, FieldAmount},
}

var (
	rowKeyPattern      = regexp.MustCompile(`^[A-Z_]+_\d+$`)
	symbolicKeyPattern = regexp.MustCompile(`^[A-Z_]+$`)
)

// Ref is a parsed row-indexed key.
type Ref struct {
	Section Section
	Field   Field
	Row     int
}

func (r Ref) String() string {
	return Key(r.Section, r.Field, r.Row)
}

// Key formats a row-indexed key.
func Key(section Section, field Field, row int) string {
	return fmt.Sprintf("%s_%s_%d", section, field, row)
}

// Total returns the symbolic column-total key of a section.
func Total(section Section) string {
	return string(section) + "_TOTAL"
}

// ParseSection reports whether s names a known section.
func ParseSection(s string) (Section, bool) {
	sec := Section(s)
	_, ok := sectionFields[sec]
	return sec, ok
}

// HasField reports whether the field is valid for the section.
func (s Section) HasField(f Field) bool {
	for _, candidate := range sectionFields[s] {
		if candidate == f {
			return true
		}
	}
	return false
}

// Fields returns the enterable fields of a section.
func (s Section) Fields() []Field {
	return append([]Field(nil), sectionFields[s]...)
}

// Parse splits a row-indexed key into its parts. Symbolic keys, unknown
// sections and fields that do not belong to the section are misses.
func Parse(key string) (Ref, bool) {
	if !rowKeyPattern.MatchString(key) {
		return Ref{}, false
	}
	first := strings.Index(key, "_")
	last := strings.LastIndex(key, "_")
	if first == last {
		return Ref{}, false
	}
	section, ok := ParseSection(key[:first])
	if !ok {
		return Ref{}, false
	}
	field := Field(key[first+1 : last])
	if !section.HasField(field) {
		return Ref{}, false
	}
	row, err := strconv.Atoi(key[last+1:])
	if err != nil || row < 0 {
		return Ref{}, false
	}
	return Ref{Section: section, Field: field, Row: row}, true
}

// IsRowKey reports whether key has the row-indexed wire shape.
func IsRowKey(key string) bool {
	return rowKeyPattern.MatchString(key)
}

// IsSymbolic reports whether key is a bare uppercase symbolic name.
func IsSymbolic(key string) bool {
	return !rowKeyPattern.MatchString(key) && symbolicKeyPattern.MatchString(key)
}

// IsWireKey reports whether key is acceptable on the wire.
func IsWireKey(key string) bool {
	return IsRowKey(key) || IsSymbolic(key)
}

// Range lists the keys of one column over rows [0, rowLimit).
func Range(section Section, field Field, rowLimit int) []string {
	keys := make([]string, 0, rowLimit)
	for row := 0; row < rowLimit; row++ {
		keys = append(keys, Key(section, field, row))
	}
	return keys
}

// RangeExpr returns the formula range expression for an amount column.
func RangeExpr(section Section, rowLimit int) string {
	return fmt.Sprintf("%s:%s", Key(section, FieldAmount, 0), Key(section, FieldAmount, rowLimit-1))
}
