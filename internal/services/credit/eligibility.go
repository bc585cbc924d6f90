package credit

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Decision messages.
const (
	MessageIncomeExceeded = "exceeds 50% of income"
	MessageApproved       = "approved"
	MessageScoreTooLow    = "credit score too low"
)

// Tier is one row of the approval table. A score s falls into the tier when
// LowerExclusive < s <= UpperInclusive. A zero MinRate means any requested
// rate is accepted.
type Tier struct {
	LowerExclusive int
	UpperInclusive int
	Approved       bool
	MinRate        decimal.Decimal
}

// Contains reports whether score falls into the tier.
func (t Tier) Contains(score int) bool {
	return score > t.LowerExclusive && score <= t.UpperInclusive
}

// Policy is an ordered approval table. The first tier containing the score wins.
type Policy struct {
	Tiers []Tier
}

// DefaultPolicy is the lending policy applied by Decide.
var DefaultPolicy = Policy{
	Tiers: []Tier{
		{LowerExclusive: 50, UpperInclusive: MaxScore, Approved: true},
		{LowerExclusive: 30, UpperInclusive: 50, Approved: true, MinRate: decimal.RequireFromString("12.0")},
		{LowerExclusive: 10, UpperInclusive: 30, Approved: true, MinRate: decimal.RequireFromString("16.0")},
		{LowerExclusive: MinScore - 1, UpperInclusive: 10, Approved: false},
	},
}

// TierFor returns the tier the score falls into.
func (p Policy) TierFor(score int) (Tier, bool) {
	for _, tier := range p.Tiers {
		if tier.Contains(score) {
			return tier, true
		}
	}
	return Tier{}, false
}

var two = decimal.NewFromInt(2)

// Decide runs a loan request through the salary gate and the policy table.
//
// Customers already paying more than half their monthly income in EMIs are
// rejected regardless of score. Otherwise the score picks a tier; approved
// requests below the tier's minimum rate are corrected up to it and the
// installment is computed at the corrected rate.
func (p Policy) Decide(profile Profile, score int, amount, rate decimal.Decimal, tenureMonths int) (Decision, error) {
	if err := profile.Validate(); err != nil {
		return Decision{}, err
	}
	if !amount.IsPositive() {
		return Decision{}, ErrInvalidPrincipal
	}
	if rate.IsNegative() {
		return Decision{}, ErrInvalidRate
	}
	if tenureMonths <= 0 {
		return Decision{}, ErrInvalidTenure
	}
	if score < MinScore || score > MaxScore {
		return Decision{}, fmt.Errorf("%w: %d", ErrInvalidScore, score)
	}

	rejected := Decision{
		Approved:              false,
		InterestRate:          rate,
		CorrectedInterestRate: rate,
		TenureMonths:          tenureMonths,
		MonthlyInstallment:    decimal.Zero,
	}

	if profile.CurrentEMI.GreaterThan(profile.MonthlyIncome.Div(two)) {
		rejected.Message = MessageIncomeExceeded
		return rejected, nil
	}

	tier, ok := p.TierFor(score)
	if !ok || !tier.Approved {
		rejected.Message = MessageScoreTooLow
		return rejected, nil
	}

	corrected := rate
	if rate.LessThan(tier.MinRate) {
		corrected = tier.MinRate
	}

	installment, err := Installment(amount, corrected, tenureMonths)
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Approved:              true,
		InterestRate:          rate,
		CorrectedInterestRate: corrected,
		TenureMonths:          tenureMonths,
		MonthlyInstallment:    installment,
		Message:               MessageApproved,
	}, nil
}

// Decide applies DefaultPolicy.
func Decide(profile Profile, score int, amount, rate decimal.Decimal, tenureMonths int) (Decision, error) {
	return DefaultPolicy.Decide(profile, score, amount, rate, tenureMonths)
}
