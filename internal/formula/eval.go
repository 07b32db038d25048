package formula

import (
	"github.com/shopspring/decimal"
)

// value is the result of evaluating a cell or a sub-expression. Exactly one of
// blank, err or num is meaningful.
type value struct {
	num   decimal.Decimal
	blank bool
	err   string
}

var (
	blankValue = value{blank: true}
	one        = decimal.NewFromInt(1)
)

func numberValue(d decimal.Decimal) value { return value{num: d} }

func errorValue(code string) value { return value{err: code} }

func boolValue(b bool) value {
	if b {
		return value{num: one}
	}
	return value{num: decimal.Zero}
}

func (v value) display() string {
	switch {
	case v.err != "":
		return v.err
	case v.blank:
		return ""
	default:
		return v.num.String()
	}
}

// number returns the arithmetic value; blank cells count as zero.
func (v value) number() decimal.Decimal {
	if v.blank {
		return decimal.Zero
	}
	return v.num
}

func (v value) truthy() bool {
	return !v.blank && !v.num.IsZero()
}

type evaluator struct {
	resolve func(key string) value
}

func (ev evaluator) eval(n node) value {
	switch v := n.(type) {
	case numberNode:
		return numberValue(v.val)

	case refNode:
		return ev.resolve(v.key)

	case rangeNode:
		// a bare range outside a function has no scalar value
		return errorValue(ErrValue)

	case unaryNode:
		x := ev.eval(v.x)
		if x.err != "" {
			return x
		}
		if v.op == "-" {
			return numberValue(x.number().Neg())
		}
		return numberValue(x.number())

	case binaryNode:
		return ev.binary(v)

	case callNode:
		return ev.call(v)
	}
	return errorValue(ErrValue)
}

func (ev evaluator) binary(n binaryNode) value {
	l := ev.eval(n.l)
	if l.err != "" {
		return l
	}
	r := ev.eval(n.r)
	if r.err != "" {
		return r
	}
	a, b := l.number(), r.number()

	switch n.op {
	case "+":
		return numberValue(a.Add(b))
	case "-":
		return numberValue(a.Sub(b))
	case "*":
		return numberValue(a.Mul(b))
	case "/":
		if b.IsZero() {
			return errorValue(ErrDivZero)
		}
		return numberValue(a.Div(b))
	case "=":
		return boolValue(a.Equal(b))
	case "<>":
		return boolValue(!a.Equal(b))
	case "<":
		return boolValue(a.LessThan(b))
	case ">":
		return boolValue(a.GreaterThan(b))
	case "<=":
		return boolValue(a.LessThanOrEqual(b))
	case ">=":
		return boolValue(a.GreaterThanOrEqual(b))
	}
	return errorValue(ErrValue)
}

// flatten evaluates function arguments, expanding ranges cell by cell.
func (ev evaluator) flatten(args []node) []value {
	var out []value
	for _, arg := range args {
		if r, ok := arg.(rangeNode); ok {
			for _, key := range r.keys {
				out = append(out, ev.resolve(key))
			}
			continue
		}
		out = append(out, ev.eval(arg))
	}
	return out
}

// numbers drops blanks and reports the first error.
func numbers(values []value) ([]decimal.Decimal, value, bool) {
	nums := make([]decimal.Decimal, 0, len(values))
	for _, v := range values {
		if v.err != "" {
			return nil, v, false
		}
		if v.blank {
			continue
		}
		nums = append(nums, v.num)
	}
	return nums, value{}, true
}

func (ev evaluator) call(n callNode) value {
	if n.name == "IF" {
		cond := ev.eval(n.args[0])
		if cond.err != "" {
			return cond
		}
		if cond.truthy() {
			return ev.eval(n.args[1])
		}
		if len(n.args) == 3 {
			return ev.eval(n.args[2])
		}
		return boolValue(false)
	}

	values := ev.flatten(n.args)

	if n.name == "COUNT" {
		count := 0
		for _, v := range values {
			if v.err == "" && !v.blank {
				count++
			}
		}
		return numberValue(decimal.NewFromInt(int64(count)))
	}

	nums, errVal, ok := numbers(values)
	if !ok {
		return errVal
	}

	switch n.name {
	case "SUM":
		return numberValue(decimal.Sum(decimal.Zero, nums...))
	case "AVERAGE":
		if len(nums) == 0 {
			return errorValue(ErrDivZero)
		}
		return numberValue(decimal.Avg(nums[0], nums[1:]...))
	case "MAX":
		if len(nums) == 0 {
			return numberValue(decimal.Zero)
		}
		return numberValue(decimal.Max(nums[0], nums[1:]...))
	case "MIN":
		if len(nums) == 0 {
			return numberValue(decimal.Zero)
		}
		return numberValue(decimal.Min(nums[0], nums[1:]...))
	case "AND", "OR":
		if len(nums) == 0 {
			return errorValue(ErrValue)
		}
		all, some := true, false
		for _, d := range nums {
			if d.IsZero() {
				all = false
			} else {
				some = true
			}
		}
		if n.name == "AND" {
			return boolValue(all)
		}
		return boolValue(some)
	}
	return errorValue(ErrValue)
}
