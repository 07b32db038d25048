package formula

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"daily-sheet-service/internal/cellkey"
)

type node interface{}

type numberNode struct {
	val decimal.Decimal
}

type refNode struct {
	key string
}

type rangeNode struct {
	keys []string
}

type unaryNode struct {
	op string
	x  node
}

type binaryNode struct {
	op   string
	l, r node
}

type callNode struct {
	name string
	args []node
}

var functions = map[string]bool{
	"SUM": true, "AVERAGE": true, "COUNT": true, "MAX": true,
	"MIN": true, "IF": true, "AND": true, "OR": true,
}

type parser struct {
	src      string
	tokens   []token
	pos      int
	rowLimit int
}

// parse compiles a formula. The leading '=' is optional. Ranges may not
// reach past rowLimit.
func parse(formula string, rowLimit int) (node, error) {
	body := strings.TrimPrefix(strings.TrimSpace(formula), "=")
	tokens, err := lex(body)
	if err != nil {
		err.(*SyntaxError).Formula = formula
		return nil, err
	}

	p := &parser{src: formula, tokens: tokens, rowLimit: rowLimit}
	if p.peek().kind == tokEOF {
		return nil, p.errorf("empty formula")
	}
	n, err := p.comparison()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, p.errorf("unexpected %q", p.peek().text)
	}
	return n, nil
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Formula: p.src, Pos: p.peek().pos, Msg: fmt.Sprintf(format, args...)}
}

func isOp(t token, ops ...string) bool {
	if t.kind != tokOp {
		return false
	}
	for _, op := range ops {
		if t.text == op {
			return true
		}
	}
	return false
}

func (p *parser) comparison() (node, error) {
	l, err := p.additive()
	if err != nil {
		return nil, err
	}
	for isOp(p.peek(), "=", "<>", "<", ">", "<=", ">=") {
		op := p.next().text
		r, err := p.additive()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) additive() (node, error) {
	l, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for isOp(p.peek(), "+", "-") {
		op := p.next().text
		r, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) multiplicative() (node, error) {
	l, err := p.unary()
	if err != nil {
		return nil, err
	}
	for isOp(p.peek(), "*", "/") {
		op := p.next().text
		r, err := p.unary()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) unary() (node, error) {
	if isOp(p.peek(), "-", "+") {
		op := p.next().text
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: op, x: x}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		val, err := decimal.NewFromString(t.text)
		if err != nil {
			return nil, &SyntaxError{Formula: p.src, Pos: t.pos, Msg: "bad number " + t.text}
		}
		return numberNode{val: val}, nil

	case tokLParen:
		p.next()
		n, err := p.comparison()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, p.errorf("missing closing parenthesis")
		}
		p.next()
		return n, nil

	case tokIdent:
		p.next()
		if p.peek().kind == tokLParen {
			return p.call(t)
		}
		if p.peek().kind == tokColon {
			p.next()
			end := p.next()
			if end.kind != tokIdent {
				return nil, p.errorf("range must end with a cell reference")
			}
			return p.rangeOf(t, end)
		}
		return refNode{key: t.text}, nil
	}

	if t.kind == tokEOF {
		return nil, p.errorf("unexpected end of formula")
	}
	return nil, p.errorf("unexpected %q", t.text)
}

func (p *parser) call(name token) (node, error) {
	if !functions[name.text] {
		return nil, &SyntaxError{Formula: p.src, Pos: name.pos, Msg: "unknown function " + name.text}
	}
	p.next()

	var args []node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.comparison()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if p.peek().kind != tokRParen {
		return nil, p.errorf("missing closing parenthesis after %s arguments", name.text)
	}
	p.next()

	if name.text == "IF" && (len(args) < 2 || len(args) > 3) {
		return nil, &SyntaxError{Formula: p.src, Pos: name.pos, Msg: "IF takes 2 or 3 arguments"}
	}
	return callNode{name: name.text, args: args}, nil
}

// rangeOf expands FROM:TO into the keys of one section column.
func (p *parser) rangeOf(from, to token) (node, error) {
	a, okA := cellkey.Parse(from.text)
	b, okB := cellkey.Parse(to.text)
	if !okA || !okB || a.Section != b.Section || a.Field != b.Field {
		return nil, &SyntaxError{Formula: p.src, Pos: from.pos, Msg: fmt.Sprintf("invalid range %s:%s", from.text, to.text)}
	}
	lo, hi := a.Row, b.Row
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi >= p.rowLimit {
		return nil, &SyntaxError{Formula: p.src, Pos: to.pos, Msg: fmt.Sprintf("range %s:%s exceeds %d rows", from.text, to.text, p.rowLimit)}
	}
	keys := make([]string, 0, hi-lo+1)
	for row := lo; row <= hi; row++ {
		keys = append(keys, cellkey.Key(a.Section, a.Field, row))
	}
	return rangeNode{keys: keys}, nil
}
