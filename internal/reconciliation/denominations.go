package reconciliation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CouponValue is the denomination value of the coupons bucket. Coupons are
// counted but never add to the cash total.
const CouponValue = 0

type Denomination struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// Count is a physical piece count of one denomination.
type Count struct {
	Value  int `json:"value"`
	Pieces int `json:"pieces"`
}

// DefaultDenominations lists the INR notes and coins in counting order.
var DefaultDenominations = []Denomination{
	{Value: 500, Label: "₹500"},
	{Value: 200, Label: "₹200"},
	{Value: 100, Label: "₹100"},
	{Value: 50, Label: "₹50"},
	{Value: 20, Label: "₹20"},
	{Value: 10, Label: "₹10"},
	{Value: 5, Label: "₹5"},
	{Value: 2, Label: "₹2"},
	{Value: 1, Label: "₹1"},
	{Value: CouponValue, Label: "Coupons"},
}

// Label returns the display label of a denomination value.
func Label(value int) string {
	if value == CouponValue {
		return "Coupons"
	}
	return fmt.Sprintf("₹%d", value)
}

// AmountFor returns pieces × value; the coupons bucket is always zero.
func AmountFor(value, pieces int) decimal.Decimal {
	if value == CouponValue {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(value)).Mul(decimal.NewFromInt(int64(pieces)))
}

func DenominationTotal(counts []Count) decimal.Decimal {
	total := decimal.Zero
	for _, c := range counts {
		total = total.Add(AmountFor(c.Value, c.Pieces))
	}
	return total
}
