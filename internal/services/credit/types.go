// Package credit implements the credit scoring and loan eligibility engine.
//
// Everything in this package is a pure function of its arguments: no I/O, no
// logging, no shared state. Callers assemble a Profile and the customer's loan
// history from storage and get back a score, a decision or an installment.
package credit

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Input validation errors. All of them wrap ErrInvalidInput.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidPrincipal = fmt.Errorf("%w: principal must be positive", ErrInvalidInput)
	ErrInvalidRate      = fmt.Errorf("%w: interest rate cannot be negative", ErrInvalidInput)
	ErrInvalidTenure    = fmt.Errorf("%w: tenure must be positive", ErrInvalidInput)
	ErrInvalidProfile   = fmt.Errorf("%w: invalid customer profile", ErrInvalidInput)
	ErrInvalidLoan      = fmt.Errorf("%w: invalid loan record", ErrInvalidInput)
	ErrInvalidScore     = fmt.Errorf("%w: score out of range", ErrInvalidInput)
)

// Profile is the financial snapshot of a customer at evaluation time.
// CurrentDebt and CurrentEMI are maintained by the caller and are taken as-is.
type Profile struct {
	MonthlyIncome decimal.Decimal
	ApprovedLimit int64
	CurrentDebt   decimal.Decimal
	CurrentEMI    decimal.Decimal
}

// Validate checks the profile invariants.
func (p Profile) Validate() error {
	switch {
	case !p.MonthlyIncome.IsPositive():
		return fmt.Errorf("%w: monthly income must be positive", ErrInvalidProfile)
	case p.ApprovedLimit <= 0:
		return fmt.Errorf("%w: approved limit must be positive", ErrInvalidProfile)
	case p.CurrentDebt.IsNegative():
		return fmt.Errorf("%w: current debt cannot be negative", ErrInvalidProfile)
	case p.CurrentEMI.IsNegative():
		return fmt.Errorf("%w: current EMI cannot be negative", ErrInvalidProfile)
	}
	return nil
}

// LoanRecord is one historical loan of a customer.
type LoanRecord struct {
	Principal      decimal.Decimal
	TenureMonths   int
	EMIsPaidOnTime int
	StartDate      time.Time
	EndDate        time.Time
}

// Validate checks the loan record invariants.
func (l LoanRecord) Validate() error {
	switch {
	case !l.Principal.IsPositive():
		return fmt.Errorf("%w: principal must be positive", ErrInvalidLoan)
	case l.TenureMonths <= 0:
		return fmt.Errorf("%w: tenure must be positive", ErrInvalidLoan)
	case l.EMIsPaidOnTime < 0 || l.EMIsPaidOnTime > l.TenureMonths:
		return fmt.Errorf("%w: emis paid on time must be between 0 and tenure", ErrInvalidLoan)
	case dateOf(l.EndDate).Before(dateOf(l.StartDate)):
		return fmt.Errorf("%w: end date before start date", ErrInvalidLoan)
	}
	return nil
}

// IsActive reports whether the loan is still running on asOf.
// The end date is exclusive: a loan ending today is closed.
func (l LoanRecord) IsActive(asOf time.Time) bool {
	return dateOf(l.EndDate).After(dateOf(asOf))
}

// IsClosed is the complement of IsActive.
func (l LoanRecord) IsClosed(asOf time.Time) bool {
	return !l.IsActive(asOf)
}

// Decision is the outcome of an eligibility check.
type Decision struct {
	Approved              bool            `json:"approval"`
	InterestRate          decimal.Decimal `json:"interest_rate"`
	CorrectedInterestRate decimal.Decimal `json:"corrected_interest_rate"`
	TenureMonths          int             `json:"tenure"`
	MonthlyInstallment    decimal.Decimal `json:"monthly_installment"`
	Message               string          `json:"message"`
}

// dateOf drops the time of day so that comparisons happen on calendar dates.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
