// Package formula evaluates sheet cells keyed by cell key.
//
// A cell holds a raw value: blank, a decimal literal or a formula starting
// with '='. Formulas reference other cells by key and may use column ranges
// (POS_AMOUNT_0:POS_AMOUNT_24) inside SUM, AVERAGE, COUNT, MAX, MIN, IF, AND
// and OR. Every change re-evaluates the whole sheet, which is bounded by the
// row window.
package formula

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"daily-sheet-service/internal/cellkey"
	"daily-sheet-service/internal/models"
)

type Options struct {
	RowLimit int
}

// Change is emitted for every cell whose calculated value changed.
type Change struct {
	CellKey  string `json:"cellKey"`
	NewValue string `json:"newValue"`
}

// Cell is a read-only view of one stored cell.
type Cell struct {
	Key             string
	RawValue        string
	CalculatedValue string
}

type cell struct {
	raw   string
	expr  node
	lit   value
	value value
}

type listener struct {
	id int
	fn func(Change)
}

// Engine is safe for concurrent use. The zero Engine is not initialized:
// mutating calls return ErrEngineNotReady and reads miss.
type Engine struct {
	mu        sync.Mutex
	ready     bool
	rowLimit  int
	cells     map[string]*cell
	listeners []listener
	nextID    int
}

func New(opts Options) *Engine {
	if opts.RowLimit <= 0 {
		opts.RowLimit = cellkey.DefaultRowLimit
	}
	return &Engine{
		ready:    true,
		rowLimit: opts.RowLimit,
		cells:    make(map[string]*cell),
	}
}

func (e *Engine) RowLimit() int {
	return e.rowLimit
}

// SetCell stores raw under key and returns the cell's calculated value.
// Unparseable formulas and non-numeric literals are rejected and leave the
// cell unchanged.
func (e *Engine) SetCell(key, raw string) (string, error) {
	e.mu.Lock()
	if !e.ready {
		e.mu.Unlock()
		return "", ErrEngineNotReady
	}
	if !cellkey.IsWireKey(key) {
		e.mu.Unlock()
		return "", ErrInvalidKey
	}

	c, err := e.compile(key, raw)
	if err != nil {
		e.mu.Unlock()
		return "", err
	}

	before := e.displays()
	e.cells[key] = c
	e.evaluate()
	changes := e.diff(before)
	result := c.value.display()
	e.mu.Unlock()

	e.notify(changes)
	return result, nil
}

func (e *Engine) compile(key, raw string) (*cell, error) {
	trimmed := strings.TrimSpace(raw)
	switch {
	case trimmed == "":
		return &cell{raw: raw, lit: blankValue}, nil
	case strings.HasPrefix(trimmed, "="):
		expr, err := parse(trimmed, e.rowLimit)
		if err != nil {
			return nil, err
		}
		return &cell{raw: raw, expr: expr}, nil
	default:
		d, err := decimal.NewFromString(trimmed)
		if err != nil {
			return nil, &LiteralError{Key: key, Raw: raw}
		}
		return &cell{raw: raw, lit: numberValue(d)}, nil
	}
}

// CalculatedValue returns the last computed display value of key.
func (e *Engine) CalculatedValue(key string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.cells[key]
	if !ok {
		return "", false
	}
	return c.value.display(), true
}

// Formula returns the raw value of key as it was stored.
func (e *Engine) Formula(key string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.cells[key]
	if !ok {
		return "", false
	}
	return c.raw, true
}

// Value returns the numeric value of key. Blank and error cells miss.
func (e *Engine) Value(key string) (decimal.Decimal, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.cells[key]
	if !ok || c.value.blank || c.value.err != "" {
		return decimal.Zero, false
	}
	return c.value.num, true
}

// Values returns every numeric cell value keyed by cell key.
func (e *Engine) Values() map[string]decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]decimal.Decimal, len(e.cells))
	for key, c := range e.cells {
		if c.value.blank || c.value.err != "" {
			continue
		}
		out[key] = c.value.num
	}
	return out
}

// Cells returns every stored cell ordered by key.
func (e *Engine) Cells() []Cell {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Cell, 0, len(e.cells))
	for _, key := range e.sortedKeys() {
		c := e.cells[key]
		out = append(out, Cell{Key: key, RawValue: c.raw, CalculatedValue: c.value.display()})
	}
	return out
}

// Recalculate re-evaluates every formula. It returns false instead of
// panicking when evaluation fails.
func (e *Engine) Recalculate() bool {
	changes, ok := e.recalculate()
	if ok {
		e.notify(changes)
	}
	return ok
}

func (e *Engine) recalculate() (changes []Change, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return nil, false
	}
	defer func() {
		if r := recover(); r != nil {
			changes, ok = nil, false
		}
	}()

	before := e.displays()
	e.evaluate()
	return e.diff(before), true
}

// SetupDerivedFields installs TOTAL_SALE, NET_AMOUNT and one column total per
// section over the configured row window.
func (e *Engine) SetupDerivedFields() error {
	e.mu.Lock()
	if !e.ready {
		e.mu.Unlock()
		return ErrEngineNotReady
	}
	before := e.displays()
	if err := e.installDerived(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.evaluate()
	changes := e.diff(before)
	e.mu.Unlock()

	e.notify(changes)
	return nil
}

// DerivedFormulas returns the standing formulas keyed by symbolic key.
func DerivedFormulas(rowLimit int) map[string]string {
	sum := func(s cellkey.Section) string {
		return "SUM(" + cellkey.RangeExpr(s, rowLimit) + ")"
	}
	formulas := map[string]string{
		cellkey.TotalSale: "=" + sum(cellkey.SectionPOS) + "+" + sum(cellkey.SectionKQR) + "+" + sum(cellkey.SectionKSW),
		cellkey.NetAmount: "=" + cellkey.TotalSale + "-" + sum(cellkey.SectionDebtor),
	}
	for _, s := range cellkey.Sections {
		formulas[cellkey.Total(s)] = "=" + sum(s)
	}
	return formulas
}

func (e *Engine) installDerived() error {
	for key, raw := range DerivedFormulas(e.rowLimit) {
		c, err := e.compile(key, raw)
		if err != nil {
			return err
		}
		e.cells[key] = c
	}
	return nil
}

// Clear drops every cell. Subscribers are kept.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return
	}
	e.cells = make(map[string]*cell)
}

// LoadFromEntries stores every entry and re-installs the derived fields.
// Entries whose raw value is rejected are skipped and reported together in
// the returned error; the rest are loaded.
func (e *Engine) LoadFromEntries(entries []models.Entry) error {
	e.mu.Lock()
	if !e.ready {
		e.mu.Unlock()
		return ErrEngineNotReady
	}

	before := e.displays()
	var errs []error
	for _, entry := range entries {
		if !cellkey.IsWireKey(entry.CellKey) {
			errs = append(errs, ErrInvalidKey)
			continue
		}
		c, err := e.compile(entry.CellKey, entry.RawValue)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		e.cells[entry.CellKey] = c
	}
	if err := e.installDerived(); err != nil {
		errs = append(errs, err)
	}
	e.evaluate()
	changes := e.diff(before)
	e.mu.Unlock()

	e.notify(changes)
	return errors.Join(errs...)
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (e *Engine) Subscribe(fn func(Change)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, listener{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

func (e *Engine) notify(changes []Change) {
	if len(changes) == 0 {
		return
	}
	e.mu.Lock()
	listeners := append([]listener(nil), e.listeners...)
	e.mu.Unlock()

	for _, change := range changes {
		for _, l := range listeners {
			deliver(l.fn, change)
		}
	}
}

func deliver(fn func(Change), change Change) {
	defer func() { _ = recover() }()
	fn(change)
}

// evaluate recomputes every cell. Callers hold e.mu.
func (e *Engine) evaluate() {
	const (
		pending = iota
		active
		done
	)
	state := make(map[string]int, len(e.cells))

	var resolve func(key string) value
	resolve = func(key string) value {
		c, ok := e.cells[key]
		if !ok {
			return blankValue
		}
		if c.expr == nil {
			c.value = c.lit
			return c.value
		}
		switch state[key] {
		case active:
			return errorValue(ErrCycle)
		case done:
			return c.value
		}
		state[key] = active
		c.value = evaluator{resolve: resolve}.eval(c.expr)
		state[key] = done
		return c.value
	}

	for _, key := range e.sortedKeys() {
		resolve(key)
	}
}

func (e *Engine) displays() map[string]string {
	out := make(map[string]string, len(e.cells))
	for key, c := range e.cells {
		out[key] = c.value.display()
	}
	return out
}

func (e *Engine) diff(before map[string]string) []Change {
	var changes []Change
	for _, key := range e.sortedKeys() {
		now := e.cells[key].value.display()
		if before[key] != now {
			changes = append(changes, Change{CellKey: key, NewValue: now})
		}
	}
	return changes
}

func (e *Engine) sortedKeys() []string {
	keys := make([]string, 0, len(e.cells))
	for key := range e.cells {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
