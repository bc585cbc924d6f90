package credit_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-line-service/internal/services/credit"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestInstallment_KnownValues(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		rate      string
		tenure    int
		want      string
	}{
		{"one year at 12%", "100000", "12", 12, "8884.88"},
		{"five years at 10.5%", "500000", "10.5", 60, "10746.95"},
		{"two years at 16%", "200000", "16", 24, "9792.62"},
		{"three years at 12%", "1000000", "12", 36, "33214.31"},
		{"one year at 16%", "300000", "16", 12, "27219.26"},
		{"zero rate divides evenly", "120000", "0", 12, "10000.00"},
		{"zero rate rounds to cents", "100000", "0", 12, "8333.33"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := credit.Installment(dec(tt.principal), dec(tt.rate), tt.tenure)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestInstallment_DegenerateCasesYieldZero(t *testing.T) {
	got, err := credit.Installment(dec("100000"), decimal.Zero, 0)
	require.NoError(t, err)
	assert.True(t, got.IsZero(), "zero rate with zero tenure")

	// (1+r)^0 - 1 == 0
	got, err = credit.Installment(dec("100000"), dec("12"), 0)
	require.NoError(t, err)
	assert.True(t, got.IsZero(), "collapsed denominator")
}

func TestInstallment_InvalidInput(t *testing.T) {
	_, err := credit.Installment(dec("-1"), dec("12"), 12)
	assert.ErrorIs(t, err, credit.ErrInvalidPrincipal)
	assert.ErrorIs(t, err, credit.ErrInvalidInput)

	_, err = credit.Installment(dec("1000"), dec("-0.5"), 12)
	assert.ErrorIs(t, err, credit.ErrInvalidRate)

	_, err = credit.Installment(dec("1000"), dec("12"), -3)
	assert.ErrorIs(t, err, credit.ErrInvalidTenure)
}

func TestInstallment_MonotonicInRate(t *testing.T) {
	principal := dec("250000")
	step := dec("0.25")

	for _, tenure := range []int{1, 6, 24, 60, 120} {
		prev := decimal.Zero
		for rate := decimal.Zero; rate.LessThanOrEqual(dec("36")); rate = rate.Add(step) {
			got, err := credit.Installment(principal, rate, tenure)
			require.NoError(t, err)
			assert.True(t, got.GreaterThanOrEqual(prev),
				"tenure %d: installment at %s%% (%s) below previous (%s)", tenure, rate, got, prev)
			prev = got
		}
	}
}

func TestInstallment_Deterministic(t *testing.T) {
	a, err := credit.Installment(dec("987654.32"), dec("13.75"), 48)
	require.NoError(t, err)
	b, err := credit.Installment(dec("987654.32"), dec("13.75"), 48)
	require.NoError(t, err)

	assert.Equal(t, a.String(), b.String())
}
