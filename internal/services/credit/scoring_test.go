package credit_test

import (
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-line-service/internal/services/credit"
)

var evalDate = time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func roomyProfile() credit.Profile {
	return credit.Profile{
		MonthlyIncome: dec("100000"),
		ApprovedLimit: 10_000_000,
		CurrentDebt:   decimal.Zero,
		CurrentEMI:    decimal.Zero,
	}
}

func loan(principal string, tenure, paid int, start, end time.Time) credit.LoanRecord {
	return credit.LoanRecord{
		Principal:      dec(principal),
		TenureMonths:   tenure,
		EMIsPaidOnTime: paid,
		StartDate:      start,
		EndDate:        end,
	}
}

func TestScore_EmptyHistory(t *testing.T) {
	score, err := credit.Score(roomyProfile(), nil, dec("100000"), evalDate)
	require.NoError(t, err)
	assert.Equal(t, 25, score, "limit check plus activity bonus")
}

func TestScore_DebtLimitGate(t *testing.T) {
	profile := credit.Profile{
		MonthlyIncome: dec("50000"),
		ApprovedLimit: 100000,
		CurrentDebt:   dec("90000"),
		CurrentEMI:    decimal.Zero,
	}
	history := []credit.LoanRecord{
		loan("6000000", 12, 12, date(2020, 1, 1), date(2021, 1, 1)),
		loan("100000", 12, 12, date(2021, 1, 1), date(2022, 1, 1)),
	}

	score, err := credit.Score(profile, history, dec("10000.01"), evalDate)
	require.NoError(t, err)
	assert.Equal(t, 0, score)

	// Reaching the limit exactly is not over it.
	score, err = credit.Score(profile, history, dec("10000"), evalDate)
	require.NoError(t, err)
	assert.Greater(t, score, 0)
}

func TestScore_Components(t *testing.T) {
	tests := []struct {
		name    string
		history []credit.LoanRecord
		want    int
	}{
		{
			name: "two closed loans fully paid, high volume",
			history: []credit.LoanRecord{
				loan("3000000", 12, 12, date(2023, 1, 1), date(2024, 1, 1)),
				loan("2500000", 24, 24, date(2022, 3, 1), date(2024, 3, 1)),
			},
			// 10 + 40 + 10 + 15 + 15
			want: 90,
		},
		{
			name: "closed loan component is capped",
			history: []credit.LoanRecord{
				loan("1000000", 12, 12, date(2018, 1, 1), date(2019, 1, 1)),
				loan("1000000", 12, 12, date(2019, 1, 1), date(2020, 1, 1)),
				loan("1000000", 12, 12, date(2020, 1, 1), date(2021, 1, 1)),
				loan("1000000", 12, 12, date(2021, 1, 1), date(2022, 1, 1)),
				loan("1000000", 12, 12, date(2022, 1, 1), date(2023, 1, 1)),
			},
			want: 100,
		},
		{
			name: "medium volume",
			history: []credit.LoanRecord{
				loan("1500000", 12, 6, date(2019, 1, 1), date(2020, 1, 1)),
			},
			// 10 + 20 + 5 + 5 + 15
			want: 55,
		},
		{
			name: "loan ending on the evaluation date is closed",
			history: []credit.LoanRecord{
				loan("100000", 12, 12, date(2025, 6, 15), date(2026, 6, 15)),
			},
			// 10 + 40 + 5 + 0 + 15
			want: 70,
		},
		{
			name: "recent loan under half paid flags a default",
			history: []credit.LoanRecord{
				loan("200000", 12, 2, date(2026, 1, 10), date(2027, 1, 10)),
			},
			// expected 5, paid 2: 10 + round(6.67) + 0 + 0 + 0
			want: 17,
		},
		{
			name: "recent loan at least half paid keeps the activity bonus",
			history: []credit.LoanRecord{
				loan("200000", 12, 3, date(2026, 1, 10), date(2027, 1, 10)),
			},
			// expected 5, paid 3: 10 + 10 + 0 + 0 + 15
			want: 35,
		},
		{
			name: "loan started this month has nothing expected yet",
			history: []credit.LoanRecord{
				loan("200000", 12, 0, date(2026, 6, 1), date(2027, 6, 1)),
			},
			want: 25,
		},
		{
			name: "one recent default suppresses the whole activity component",
			history: []credit.LoanRecord{
				loan("3000000", 12, 12, date(2020, 1, 1), date(2021, 1, 1)),
				loan("3000000", 12, 12, date(2021, 1, 1), date(2022, 1, 1)),
				loan("100000", 24, 1, date(2026, 2, 1), date(2028, 2, 1)),
			},
			// paid 25/48: 10 + round(20.83) + 10 + 15 + 0
			want: 56,
		},
		{
			name: "half ratio rounds to even, down",
			history: []credit.LoanRecord{
				loan("100000", 80, 1, date(2020, 1, 1), date(2026, 9, 1)),
			},
			// 40/80 = 0.5
			want: 25,
		},
		{
			name: "half ratio rounds to even, up",
			history: []credit.LoanRecord{
				loan("100000", 80, 3, date(2020, 1, 1), date(2026, 9, 1)),
			},
			// 120/80 = 1.5
			want: 27,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := credit.Score(roomyProfile(), tt.history, dec("100000"), evalDate)
			require.NoError(t, err)
			assert.Equal(t, tt.want, score)
		})
	}
}

func TestScore_IgnoresTimeOfDay(t *testing.T) {
	history := []credit.LoanRecord{
		loan("100000", 12, 12, date(2025, 6, 15), time.Date(2026, 6, 15, 23, 59, 0, 0, time.UTC)),
	}

	score, err := credit.Score(roomyProfile(), history, dec("1000"), evalDate.Add(6*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 70, score)
}

func TestScore_OrderIndependentAndPure(t *testing.T) {
	history := []credit.LoanRecord{
		loan("3000000", 12, 12, date(2020, 1, 1), date(2021, 1, 1)),
		loan("450000", 36, 20, date(2024, 5, 1), date(2027, 5, 1)),
		loan("100000", 24, 1, date(2026, 2, 1), date(2028, 2, 1)),
	}
	snapshot := slices.Clone(history)

	first, err := credit.Score(roomyProfile(), history, dec("100000"), evalDate)
	require.NoError(t, err)

	reversed := slices.Clone(history)
	slices.Reverse(reversed)
	second, err := credit.Score(roomyProfile(), reversed, dec("100000"), evalDate)
	require.NoError(t, err)

	again, err := credit.Score(roomyProfile(), history, dec("100000"), evalDate)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, again)
	assert.Equal(t, snapshot, history, "history must not be mutated")
}

func TestScore_AlwaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		var history []credit.LoanRecord
		n := rng.Intn(8)
		for j := 0; j < n; j++ {
			tenure := 1 + rng.Intn(120)
			start := date(2015+rng.Intn(12), time.Month(1+rng.Intn(12)), 1)
			history = append(history, credit.LoanRecord{
				Principal:      decimal.NewFromInt(int64(1000 + rng.Intn(4_000_000))),
				TenureMonths:   tenure,
				EMIsPaidOnTime: rng.Intn(tenure + 1),
				StartDate:      start,
				EndDate:        start.AddDate(0, tenure, 0),
			})
		}

		profile := credit.Profile{
			MonthlyIncome: decimal.NewFromInt(int64(10000 + rng.Intn(200000))),
			ApprovedLimit: int64(100000 + rng.Intn(10_000_000)),
			CurrentDebt:   decimal.NewFromInt(int64(rng.Intn(5_000_000))),
			CurrentEMI:    decimal.Zero,
		}
		proposed := decimal.NewFromInt(int64(rng.Intn(5_000_000)))

		score, err := credit.Score(profile, history, proposed, evalDate)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, score, credit.MinScore)
		assert.LessOrEqual(t, score, credit.MaxScore)

		if profile.CurrentDebt.Add(proposed).GreaterThan(decimal.NewFromInt(profile.ApprovedLimit)) {
			assert.Equal(t, 0, score)
		}
	}
}

func TestScore_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		profile credit.Profile
		history []credit.LoanRecord
		amount  string
		wantErr error
	}{
		{
			name:    "paid exceeds tenure",
			profile: roomyProfile(),
			history: []credit.LoanRecord{loan("1000", 12, 13, date(2020, 1, 1), date(2021, 1, 1))},
			amount:  "1000",
			wantErr: credit.ErrInvalidLoan,
		},
		{
			name:    "non-positive loan tenure",
			profile: roomyProfile(),
			history: []credit.LoanRecord{loan("1000", 0, 0, date(2020, 1, 1), date(2021, 1, 1))},
			amount:  "1000",
			wantErr: credit.ErrInvalidLoan,
		},
		{
			name:    "end before start",
			profile: roomyProfile(),
			history: []credit.LoanRecord{loan("1000", 12, 0, date(2021, 1, 1), date(2020, 1, 1))},
			amount:  "1000",
			wantErr: credit.ErrInvalidLoan,
		},
		{
			name:    "negative proposed amount",
			profile: roomyProfile(),
			amount:  "-1",
			wantErr: credit.ErrInvalidPrincipal,
		},
		{
			name:    "zero income",
			profile: credit.Profile{ApprovedLimit: 1000},
			amount:  "1",
			wantErr: credit.ErrInvalidProfile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := credit.Score(tt.profile, tt.history, dec(tt.amount), evalDate)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, credit.ErrInvalidInput)
		})
	}
}
