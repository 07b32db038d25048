package formula

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokColon
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex splits a formula body (without the leading '=') into tokens.
func lex(src string) ([]token, error) {
	var tokens []token
	runes := []rune(src)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			start := i
			seenDot := false
			for i < len(runes) && (unicode.IsDigit(runes[i]) || (runes[i] == '.' && !seenDot)) {
				if runes[i] == '.' {
					seenDot = true
				}
				i++
			}
			tokens = append(tokens, token{kind: tokNumber, text: string(runes[start:i]), pos: start})
		case r == '_' || unicode.IsLetter(r):
			start := i
			for i < len(runes) && (runes[i] == '_' || unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i])) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: strings.ToUpper(string(runes[start:i])), pos: start})
		case r == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++
		case r == ',':
			tokens = append(tokens, token{kind: tokComma, text: ",", pos: i})
			i++
		case r == ':':
			tokens = append(tokens, token{kind: tokColon, text: ":", pos: i})
			i++
		case r == '+' || r == '-' || r == '*' || r == '/' || r == '=':
			tokens = append(tokens, token{kind: tokOp, text: string(r), pos: i})
			i++
		case r == '<' || r == '>':
			op := string(r)
			if i+1 < len(runes) && (runes[i+1] == '=' || (r == '<' && runes[i+1] == '>')) {
				op += string(runes[i+1])
			}
			tokens = append(tokens, token{kind: tokOp, text: op, pos: i})
			i += len(op)
		default:
			return nil, &SyntaxError{Pos: i, Msg: "unexpected character " + string(r)}
		}
	}

	return append(tokens, token{kind: tokEOF, pos: len(runes)}), nil
}
