// Package ratecomp compares invoice lines against contracted rates and
// decides which invoices can be approved without human review.
package ratecomp

import (
	"strings"

	"github.com/shopspring/decimal"

	"landscaping_invoices/internal/contract"
	"landscaping_invoices/internal/invoice"
)

// Decision is the outcome recorded for an invoice line.
type Decision string

const (
	DecisionApproved Decision = "Approved"
	DecisionReview   Decision = "Review"
)

// Approved reports whether the decision marks the line for submission.
// Comparison matches case-insensitively so hand-edited sheets still count.
func (d Decision) Approved() bool {
	return strings.EqualFold(strings.TrimSpace(string(d)), string(DecisionApproved))
}

// Comparison is one invoice line joined with its contracted rate.
type Comparison struct {
	Line           invoice.Line
	ContractedRate decimal.NullDecimal
	RateDifference decimal.NullDecimal
	Decision       Decision
}

var (
	// matchTolerance is the band around zero treated as an exact match.
	matchTolerance = decimal.RequireFromString("0.06")
	// underbillFloor is the largest accepted amount billed under contract.
	underbillFloor = decimal.NewFromInt(-5)
)

// RateDifference returns invoice total minus contracted rate, or missing
// when either side is missing.
func RateDifference(total, rate decimal.NullDecimal) decimal.NullDecimal {
	if !total.Valid || !rate.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: total.Decimal.Sub(rate.Decimal), Valid: true}
}

// DecideApproval classifies a rate difference. A missing difference always
// goes to review. Differences within the tolerance band count as billed at
// contract, and underbilling up to the floor is accepted as-is. Everything
// else goes to review.
func DecideApproval(diff decimal.NullDecimal) Decision {
	if !diff.Valid {
		return DecisionReview
	}
	d := diff.Decimal
	if d.Abs().LessThan(matchTolerance) {
		return DecisionApproved
	}
	if d.IsNegative() && d.GreaterThanOrEqual(underbillFloor) {
		return DecisionApproved
	}
	return DecisionReview
}

// Reconcile joins invoice lines with the rate table and decides each one.
// Input order is preserved and every line produces exactly one comparison.
func Reconcile(lines []invoice.Line, rates contract.RateTable) []Comparison {
	comps := make([]Comparison, 0, len(lines))
	for _, line := range lines {
		var rate decimal.NullDecimal
		if line.HasLocationID {
			if r, ok := rates[line.LocationID]; ok {
				rate = decimal.NullDecimal{Decimal: r, Valid: true}
			}
		}
		diff := RateDifference(line.Total, rate)
		comps = append(comps, Comparison{
			Line:           line,
			ContractedRate: rate,
			RateDifference: diff,
			Decision:       DecideApproval(diff),
		})
	}
	return comps
}
