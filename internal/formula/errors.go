package formula

import (
	"errors"
	"fmt"
)

// ErrEngineNotReady is returned by every mutating call on an Engine that was
// not built with New.
var ErrEngineNotReady = errors.New("formula engine not initialized")

// ErrInvalidKey is returned when a cell key has neither the row nor the
// symbolic shape.
var ErrInvalidKey = errors.New("invalid cell key")

// SyntaxError reports a formula that could not be parsed.
type SyntaxError struct {
	Formula string
	Pos     int
	Msg     string
}

func (e *SyntaxError) Error() string {
	if e.Formula == "" {
		return fmt.Sprintf("formula syntax error at %d: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("formula syntax error in %q at %d: %s", e.Formula, e.Pos, e.Msg)
}

// LiteralError reports a non-formula raw value that is not a number.
type LiteralError struct {
	Key string
	Raw string
}

func (e *LiteralError) Error() string {
	return fmt.Sprintf("cell %s: %q is not a number", e.Key, e.Raw)
}

// Display values for evaluation failures.
const (
	ErrDivZero = "#DIV/0!"
	ErrCycle   = "#CYCLE!"
	ErrValue   = "#VALUE!"
)
