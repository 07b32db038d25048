// Package matching suggests which pending debtors a received payment
// settles. A payment may clear one bill or, for the same party, up to
// MaxBillsPerPayment bills at once.
package matching

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"daily-sheet-service/internal/models"
)

const (
	// Match confidence thresholds
	PerfectMatchConfidence = 1.00
	HighMatchConfidence    = 0.95
	MediumMatchConfidence  = 0.80
	LowMatchConfidence     = 0.60

	// Amount difference tolerance (fraction of the payment)
	AmountTolerancePercent = 0.01

	// A payment is expected within this many days of the credit sale
	DateToleranceDays = 30

	MaxBillsPerPayment = 3
)

const (
	MatchOneToOne  = "one_to_one"
	MatchOneToMany = "one_to_many"
)

// Payment is the collection being matched.
type Payment struct {
	Date      string
	Amount    decimal.Decimal
	PartyName string
	BillNo    string
}

func PaymentFrom(c models.Collection) Payment {
	return Payment{Date: c.Date, Amount: c.Amount, PartyName: c.PartyName, BillNo: c.BillNo}
}

type MatchResult struct {
	Type             string          `json:"type"`
	Confidence       float64         `json:"confidence"`
	Debtors          []models.Debtor `json:"debtors"`
	AmountDifference decimal.Decimal `json:"amountDifference"`
	MatchCriteria    []string        `json:"matchCriteria"`
}

type MatchEngine struct {
	debtors []models.Debtor
}

// NewMatchEngine matches against the given debtors. Debtors that are not
// pending are ignored.
func NewMatchEngine(debtors []models.Debtor) *MatchEngine {
	m := &MatchEngine{}
	for _, d := range debtors {
		if d.Status == models.DebtorStatusPending {
			m.debtors = append(m.debtors, d)
		}
	}
	return m
}

// Suggest returns candidate matches for p, best first, at most limit of
// them (all when limit <= 0). A perfect single-bill match is returned alone.
func (m *MatchEngine) Suggest(p Payment, limit int) []*MatchResult {
	if !p.Amount.IsPositive() {
		return nil
	}

	var results []*MatchResult
	for _, d := range m.debtors {
		result := m.checkOneToOneMatch(p, d)
		if result == nil {
			continue
		}
		if result.Confidence >= PerfectMatchConfidence {
			return []*MatchResult{result}
		}
		results = append(results, result)
	}

	if result := m.findOneToManyMatch(p); result != nil {
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].AmountDifference.LessThan(results[j].AmountDifference)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func tolerance(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromFloat(AmountTolerancePercent))
}

// daysAfter returns how many days the payment came after the sale. ok is
// false for unparseable dates.
func daysAfter(paymentDate, saleDate string) (float64, bool) {
	paid, err := time.Parse(models.DateLayout, paymentDate)
	if err != nil {
		return 0, false
	}
	sold, err := time.Parse(models.DateLayout, saleDate)
	if err != nil {
		return 0, false
	}
	return paid.Sub(sold).Hours() / 24, true
}

func sameParty(a, b string) bool {
	return a != "" && b != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func (m *MatchEngine) checkOneToOneMatch(p Payment, d models.Debtor) *MatchResult {
	var matchCriteria []string
	var confidence float64

	amountDiff := p.Amount.Sub(d.Amount).Abs()
	if amountDiff.IsZero() {
		matchCriteria = append(matchCriteria, "amount")
		confidence += 0.4
	} else if amountDiff.LessThanOrEqual(tolerance(p.Amount)) {
		matchCriteria = append(matchCriteria, "amount")
		confidence += 0.3
	} else {
		return nil
	}

	if p.BillNo != "" && d.BillNo != "" {
		if !strings.EqualFold(p.BillNo, d.BillNo) {
			return nil
		}
		matchCriteria = append(matchCriteria, "bill")
		confidence += 0.3
	}

	if p.PartyName != "" {
		if !sameParty(p.PartyName, d.PartyName) {
			return nil
		}
		matchCriteria = append(matchCriteria, "party")
		confidence += 0.2
	}

	if days, ok := daysAfter(p.Date, d.Date); ok {
		if days < 0 {
			return nil
		}
		if days <= DateToleranceDays {
			matchCriteria = append(matchCriteria, "date")
			confidence += 0.1
		}
	}

	confidence = round(confidence)
	if confidence < LowMatchConfidence {
		return nil
	}
	return &MatchResult{
		Type:             MatchOneToOne,
		Confidence:       confidence,
		Debtors:          []models.Debtor{d},
		AmountDifference: amountDiff,
		MatchCriteria:    matchCriteria,
	}
}

// findOneToManyMatch looks for bills of the payment's party that together
// add up to the payment.
func (m *MatchEngine) findOneToManyMatch(p Payment) *MatchResult {
	if p.PartyName == "" {
		return nil
	}

	var bestMatch *MatchResult
	minDifference := p.Amount

	for _, debtors := range m.findPossibleCombinations(p) {
		total := decimal.Zero
		for _, d := range debtors {
			total = total.Add(d.Amount)
		}
		difference := p.Amount.Sub(total).Abs()
		if !difference.LessThan(minDifference) {
			continue
		}
		minDifference = difference

		confidence := m.calculateOneToManyConfidence(p, debtors, difference)
		if confidence < MediumMatchConfidence {
			continue
		}

		matchCriteria := []string{"amount", "party"}
		if withinDateWindow(p, debtors) {
			matchCriteria = append(matchCriteria, "date")
		}
		bestMatch = &MatchResult{
			Type:             MatchOneToMany,
			Confidence:       confidence,
			Debtors:          debtors,
			AmountDifference: difference,
			MatchCriteria:    matchCriteria,
		}
	}
	return bestMatch
}

func (m *MatchEngine) findPossibleCombinations(p Payment) [][]models.Debtor {
	var candidates []models.Debtor
	for _, d := range m.debtors {
		if sameParty(p.PartyName, d.PartyName) && d.Amount.LessThan(p.Amount) {
			if days, ok := daysAfter(p.Date, d.Date); ok && days < 0 {
				continue
			}
			candidates = append(candidates, d)
		}
	}

	var result [][]models.Debtor
	for size := 2; size <= MaxBillsPerPayment; size++ {
		m.findCombinations(candidates, size, p.Amount, nil, &result)
	}
	return result
}

func (m *MatchEngine) findCombinations(candidates []models.Debtor, size int, target decimal.Decimal, current []models.Debtor, result *[][]models.Debtor) {
	if size == 0 {
		sum := decimal.Zero
		for _, d := range current {
			sum = sum.Add(d.Amount)
		}
		if target.Sub(sum).Abs().LessThanOrEqual(tolerance(target)) {
			combination := make([]models.Debtor, len(current))
			copy(combination, current)
			*result = append(*result, combination)
		}
		return
	}

	if len(candidates) < size {
		return
	}

	m.findCombinations(candidates[1:], size-1, target, append(current, candidates[0]), result)
	m.findCombinations(candidates[1:], size, target, current, result)
}

func withinDateWindow(p Payment, debtors []models.Debtor) bool {
	for _, d := range debtors {
		days, ok := daysAfter(p.Date, d.Date)
		if !ok || days > DateToleranceDays {
			return false
		}
	}
	return true
}

func (m *MatchEngine) calculateOneToManyConfidence(p Payment, debtors []models.Debtor, amountDiff decimal.Decimal) float64 {
	confidence := 0.7 // base confidence for a matching sum of one party's bills

	if amountDiff.IsZero() {
		confidence += 0.2
	} else if amountDiff.LessThanOrEqual(tolerance(p.Amount)) {
		confidence += 0.1
	}

	if withinDateWindow(p, debtors) {
		confidence += 0.1
	}

	if p.BillNo != "" {
		for _, d := range debtors {
			if strings.EqualFold(d.BillNo, p.BillNo) {
				confidence += 0.1 / float64(len(debtors))
				break
			}
		}
	}

	if confidence > HighMatchConfidence {
		confidence = HighMatchConfidence
	}
	return round(confidence)
}

func round(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
