package credit

import (
	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of fractional digits kept on money amounts.
const CurrencyPlaces = 2

// calcPlaces bounds the scale of intermediate results in the compounding formula.
const calcPlaces = 34

var (
	one         = decimal.NewFromInt(1)
	rateDivisor = decimal.NewFromInt(1200)
)

// Installment returns the equated monthly installment for a loan of principal
// at annualRatePercent over tenureMonths, rounded to CurrencyPlaces with
// banker's rounding.
//
// A zero rate is simple division. A zero tenure, or a compounding denominator
// that collapses to zero, yields a zero installment instead of an error.
func Installment(principal, annualRatePercent decimal.Decimal, tenureMonths int) (decimal.Decimal, error) {
	if principal.IsNegative() {
		return decimal.Zero, ErrInvalidPrincipal
	}
	if annualRatePercent.IsNegative() {
		return decimal.Zero, ErrInvalidRate
	}
	if tenureMonths < 0 {
		return decimal.Zero, ErrInvalidTenure
	}

	if annualRatePercent.IsZero() {
		if tenureMonths == 0 {
			return decimal.Zero, nil
		}
		return principal.DivRound(decimal.NewFromInt(int64(tenureMonths)), calcPlaces).RoundBank(CurrencyPlaces), nil
	}

	r := annualRatePercent.DivRound(rateDivisor, calcPlaces)
	growth := compound(one.Add(r), tenureMonths)

	denominator := growth.Sub(one)
	if denominator.IsZero() {
		return decimal.Zero, nil
	}

	emi := principal.Mul(r).Mul(growth).DivRound(denominator, calcPlaces)
	return emi.RoundBank(CurrencyPlaces), nil
}

// compound raises base to the n-th power by squaring, holding every
// intermediate product to calcPlaces.
func compound(base decimal.Decimal, n int) decimal.Decimal {
	result := one
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(calcPlaces)
		}
		base = base.Mul(base).Round(calcPlaces)
		n >>= 1
	}
	return result
}
