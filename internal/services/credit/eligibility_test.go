package credit_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-line-service/internal/services/credit"
)

func TestDecide_SalaryGate(t *testing.T) {
	profile := credit.Profile{
		MonthlyIncome: dec("50000"),
		ApprovedLimit: 1_800_000,
		CurrentDebt:   dec("400000"),
		CurrentEMI:    dec("30000"),
	}

	for _, score := range []int{0, 10, 25, 45, 100} {
		decision, err := credit.Decide(profile, score, dec("100000"), dec("10"), 12)
		require.NoError(t, err)

		assert.False(t, decision.Approved, "score %d", score)
		assert.Equal(t, credit.MessageIncomeExceeded, decision.Message)
		assert.True(t, decision.MonthlyInstallment.IsZero())
		assert.True(t, decision.CorrectedInterestRate.Equal(dec("10")))
	}
}

func TestDecide_SalaryGateIsStrict(t *testing.T) {
	profile := credit.Profile{
		MonthlyIncome: dec("50000"),
		ApprovedLimit: 1_800_000,
		CurrentDebt:   decimal.Zero,
		CurrentEMI:    dec("25000"),
	}

	decision, err := credit.Decide(profile, 80, dec("100000"), dec("12"), 12)
	require.NoError(t, err)
	assert.True(t, decision.Approved)
	assert.Equal(t, credit.MessageApproved, decision.Message)
}

func TestDecide_TierBoundaries(t *testing.T) {
	profile := roomyProfile()

	tests := []struct {
		score         int
		requestedRate string
		wantApproved  bool
		wantRate      string
	}{
		{100, "8", true, "8"},
		{51, "8", true, "8"},
		{51, "0", true, "0"},
		{50, "8", true, "12"},
		{50, "12", true, "12"},
		{31, "13.5", true, "13.5"},
		{31, "11.99", true, "12"},
		{30, "8", true, "16"},
		{30, "16", true, "16"},
		{11, "18", true, "18"},
		{11, "15.5", true, "16"},
		{10, "20", false, "20"},
		{1, "8", false, "8"},
		{0, "8", false, "8"},
	}

	for _, tt := range tests {
		decision, err := credit.Decide(profile, tt.score, dec("100000"), dec(tt.requestedRate), 12)
		require.NoError(t, err)

		assert.Equal(t, tt.wantApproved, decision.Approved, "score %d", tt.score)
		assert.True(t, decision.CorrectedInterestRate.Equal(dec(tt.wantRate)),
			"score %d rate %s: got corrected %s", tt.score, tt.requestedRate, decision.CorrectedInterestRate)
		assert.True(t, decision.InterestRate.Equal(dec(tt.requestedRate)))
		assert.Equal(t, 12, decision.TenureMonths)

		if tt.wantApproved {
			assert.Equal(t, credit.MessageApproved, decision.Message)
			want, err := credit.Installment(dec("100000"), dec(tt.wantRate), 12)
			require.NoError(t, err)
			assert.True(t, decision.MonthlyInstallment.Equal(want))
		} else {
			assert.Equal(t, credit.MessageScoreTooLow, decision.Message)
			assert.True(t, decision.MonthlyInstallment.IsZero())
		}
	}
}

func TestDecide_HighScoreNeverRaisesRate(t *testing.T) {
	for score := 51; score <= credit.MaxScore; score++ {
		for _, rate := range []string{"0", "1", "7.25", "12", "16", "30"} {
			decision, err := credit.Decide(roomyProfile(), score, dec("50000"), dec(rate), 6)
			require.NoError(t, err)
			assert.True(t, decision.CorrectedInterestRate.Equal(dec(rate)))
		}
	}
}

func TestDecide_EmptyHistoryEndToEnd(t *testing.T) {
	profile := roomyProfile()

	score, err := credit.Score(profile, nil, dec("200000"), evalDate)
	require.NoError(t, err)
	require.Equal(t, 25, score)

	decision, err := credit.Decide(profile, score, dec("200000"), dec("10"), 24)
	require.NoError(t, err)

	assert.True(t, decision.Approved)
	assert.Equal(t, "16", decision.CorrectedInterestRate.String())
	assert.Equal(t, "9792.62", decision.MonthlyInstallment.StringFixed(2))
}

func TestDecide_Idempotent(t *testing.T) {
	first, err := credit.Decide(roomyProfile(), 42, dec("333333.33"), dec("9.99"), 37)
	require.NoError(t, err)
	second, err := credit.Decide(roomyProfile(), 42, dec("333333.33"), dec("9.99"), 37)
	require.NoError(t, err)

	assert.Equal(t, first.Approved, second.Approved)
	assert.Equal(t, first.CorrectedInterestRate.String(), second.CorrectedInterestRate.String())
	assert.Equal(t, first.MonthlyInstallment.String(), second.MonthlyInstallment.String())
	assert.Equal(t, first.Message, second.Message)
}

func TestDecide_InvalidInput(t *testing.T) {
	profile := roomyProfile()

	_, err := credit.Decide(profile, 101, dec("1000"), dec("10"), 12)
	assert.ErrorIs(t, err, credit.ErrInvalidScore)

	_, err = credit.Decide(profile, -1, dec("1000"), dec("10"), 12)
	assert.ErrorIs(t, err, credit.ErrInvalidScore)

	_, err = credit.Decide(profile, 50, dec("1000"), dec("10"), 0)
	assert.ErrorIs(t, err, credit.ErrInvalidTenure)

	_, err = credit.Decide(profile, 50, decimal.Zero, dec("10"), 12)
	assert.ErrorIs(t, err, credit.ErrInvalidPrincipal)

	_, err = credit.Decide(profile, 50, dec("1000"), dec("-1"), 12)
	assert.ErrorIs(t, err, credit.ErrInvalidRate)

	_, err = credit.Decide(credit.Profile{}, 50, dec("1000"), dec("10"), 12)
	assert.ErrorIs(t, err, credit.ErrInvalidProfile)
}

func TestPolicy_TierForCoversScoreRange(t *testing.T) {
	for score := credit.MinScore; score <= credit.MaxScore; score++ {
		tier, ok := credit.DefaultPolicy.TierFor(score)
		require.True(t, ok, "score %d has no tier", score)
		assert.True(t, tier.Contains(score))
	}

	_, ok := credit.DefaultPolicy.TierFor(credit.MaxScore + 1)
	assert.False(t, ok)
}

func TestPolicy_CustomTable(t *testing.T) {
	policy := credit.Policy{Tiers: []credit.Tier{
		{LowerExclusive: 70, UpperInclusive: 100, Approved: true},
		{LowerExclusive: -1, UpperInclusive: 70, Approved: false},
	}}

	decision, err := policy.Decide(roomyProfile(), 60, dec("1000"), dec("5"), 12)
	require.NoError(t, err)
	assert.False(t, decision.Approved)
	assert.Equal(t, credit.MessageScoreTooLow, decision.Message)
}
