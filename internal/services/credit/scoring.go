package credit

import (
	"time"

	"github.com/shopspring/decimal"
)

// Score component weights.
const (
	MinScore = 0
	MaxScore = 100

	limitCheckPoints   = 10
	onTimeWeight       = 40
	closedLoanPoints   = 5
	closedLoanCap      = 20
	volumeHighPoints   = 15
	volumeMediumPoints = 5
	activityPoints     = 15
)

var (
	volumeHighThreshold   = decimal.NewFromInt(5_000_000)
	volumeMediumThreshold = decimal.NewFromInt(1_000_000)
)

// Score reduces a customer's loan history and a proposed loan amount to a
// credit score in [MinScore, MaxScore].
//
// If the proposed amount would push the customer's debt over the approved
// limit the score is 0 and nothing else is looked at. Otherwise the customer
// gets 10 points for staying within the limit plus:
//
//	on-time ratio      round(40 * paid/tenure) over all loans
//	closed loans       5 per loan ending on or before evalDate, at most 20
//	approved volume    15 from 5,000,000; 5 from 1,000,000
//	recent activity    15 unless any loan started this year is under half paid
func Score(profile Profile, history []LoanRecord, proposedAmount decimal.Decimal, evalDate time.Time) (int, error) {
	if err := profile.Validate(); err != nil {
		return 0, err
	}
	if proposedAmount.IsNegative() {
		return 0, ErrInvalidPrincipal
	}
	for _, loan := range history {
		if err := loan.Validate(); err != nil {
			return 0, err
		}
	}

	limit := decimal.NewFromInt(profile.ApprovedLimit)
	if profile.CurrentDebt.Add(proposedAmount).GreaterThan(limit) {
		return 0, nil
	}

	t := tally(history, evalDate)

	score := limitCheckPoints
	score += onTimePoints(t.paid, t.due)
	score += min(closedLoanPoints*t.closed, closedLoanCap)

	switch {
	case t.volume.GreaterThanOrEqual(volumeHighThreshold):
		score += volumeHighPoints
	case t.volume.GreaterThanOrEqual(volumeMediumThreshold):
		score += volumeMediumPoints
	}

	if !t.recentDefault {
		score += activityPoints
	}

	return max(MinScore, min(score, MaxScore)), nil
}

type historyTally struct {
	paid          int64
	due           int64
	closed        int
	volume        decimal.Decimal
	recentDefault bool
}

// tally walks the history once and collects every aggregate Score needs.
func tally(history []LoanRecord, evalDate time.Time) historyTally {
	eval := dateOf(evalDate)
	t := historyTally{volume: decimal.Zero}

	for _, loan := range history {
		t.paid += int64(loan.EMIsPaidOnTime)
		t.due += int64(loan.TenureMonths)
		t.volume = t.volume.Add(loan.Principal)

		if loan.IsClosed(eval) {
			t.closed++
		}

		start := dateOf(loan.StartDate)
		if start.Year() != eval.Year() {
			continue
		}
		expected := (eval.Year()-start.Year())*12 + int(eval.Month()) - int(start.Month())
		// paid/expected < 0.5
		if expected > 0 && 2*loan.EMIsPaidOnTime < expected {
			t.recentDefault = true
		}
	}

	return t
}

// onTimePoints is round(40 * paid / due) with ties going to the even integer,
// computed without leaving integer arithmetic.
func onTimePoints(paid, due int64) int {
	if due <= 0 {
		return 0
	}
	num := onTimeWeight * paid
	q, rem := num/due, num%due
	switch {
	case 2*rem > due:
		q++
	case 2*rem == due && q%2 == 1:
		q++
	}
	return int(q)
}
