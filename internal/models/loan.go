// Package models defines the data structures for the credit line service.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	"credit-line-service/internal/services/credit"
)

// Loan represents a loan booked against a customer.
type Loan struct {
	ID                 int64           `json:"loan_id" db:"loan_id"`
	CustomerID         int64           `json:"customer_id" db:"customer_id"`
	LoanAmount         decimal.Decimal `json:"loan_amount" db:"loan_amount"`
	TenureMonths       int             `json:"tenure" db:"tenure"`
	InterestRate       decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	MonthlyInstallment decimal.Decimal `json:"monthly_installment" db:"monthly_installment"`
	EMIsPaidOnTime     int             `json:"emis_paid_on_time" db:"emis_paid_on_time"`
	StartDate          time.Time       `json:"start_date" db:"start_date"`
	EndDate            time.Time       `json:"end_date" db:"end_date"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
}

// Record returns the scoring view of the loan.
func (l *Loan) Record() credit.LoanRecord {
	return credit.LoanRecord{
		Principal:      l.LoanAmount,
		TenureMonths:   l.TenureMonths,
		EMIsPaidOnTime: l.EMIsPaidOnTime,
		StartDate:      l.StartDate,
		EndDate:        l.EndDate,
	}
}

// IsActive reports whether the loan is still running on asOf.
func (l *Loan) IsActive(asOf time.Time) bool {
	return l.Record().IsActive(asOf)
}

// RepaymentsLeft is the number of installments not yet paid on time.
func (l *Loan) RepaymentsLeft() int {
	left := l.TenureMonths - l.EMIsPaidOnTime
	if left < 0 {
		return 0
	}
	return left
}

// Records converts loans to scoring records.
func Records(loans []*Loan) []credit.LoanRecord {
	records := make([]credit.LoanRecord, 0, len(loans))
	for _, l := range loans {
		records = append(records, l.Record())
	}
	return records
}

// LoanRequest is the body of eligibility checks and loan creation.
type LoanRequest struct {
	CustomerID   int64           `json:"customer_id" validate:"required,gt=0"`
	LoanAmount   decimal.Decimal `json:"loan_amount" validate:"decimal_gte=1000"`
	InterestRate decimal.Decimal `json:"interest_rate" validate:"decimal_gte=0,decimal_lte=100"`
	Tenure       int             `json:"tenure" validate:"required,gte=1,lte=600"`
}

// EligibilityResponse is the outcome of an eligibility check.
type EligibilityResponse struct {
	CustomerID            int64           `json:"customer_id"`
	Approval              bool            `json:"approval"`
	InterestRate          decimal.Decimal `json:"interest_rate"`
	CorrectedInterestRate decimal.Decimal `json:"corrected_interest_rate"`
	Tenure                int             `json:"tenure"`
	MonthlyInstallment    decimal.Decimal `json:"monthly_installment"`
	CreditScore           int             `json:"credit_score"`
	Message               string          `json:"message"`
}

// CreateLoanResponse is the outcome of a loan creation request. LoanID is
// nil when the loan was not approved.
type CreateLoanResponse struct {
	LoanID             *int64          `json:"loan_id"`
	CustomerID         int64           `json:"customer_id"`
	LoanApproved       bool            `json:"loan_approved"`
	Message            string          `json:"message"`
	MonthlyInstallment decimal.Decimal `json:"monthly_installment"`
	CreditScore        int             `json:"credit_score"`
}

// QuoteResponse is an installment quote.
type QuoteResponse struct {
	LoanAmount         decimal.Decimal `json:"loan_amount"`
	InterestRate       decimal.Decimal `json:"interest_rate"`
	Tenure             int             `json:"tenure"`
	MonthlyInstallment decimal.Decimal `json:"monthly_installment"`
}

// LoanCreate represents data needed to book an approved loan.
type LoanCreate struct {
	CustomerID         int64
	LoanAmount         decimal.Decimal
	TenureMonths       int
	InterestRate       decimal.Decimal
	MonthlyInstallment decimal.Decimal
	StartDate          time.Time
	EndDate            time.Time
}

// LoanImport is a loan row from a bulk import.
type LoanImport struct {
	ID                 int64
	CustomerID         int64
	LoanAmount         decimal.Decimal
	TenureMonths       int
	InterestRate       decimal.Decimal
	MonthlyInstallment decimal.Decimal
	EMIsPaidOnTime     int
	StartDate          time.Time
	EndDate            time.Time
}

// Record returns the scoring view of the imported loan.
func (l *LoanImport) Record() credit.LoanRecord {
	return credit.LoanRecord{
		Principal:      l.LoanAmount,
		TenureMonths:   l.TenureMonths,
		EMIsPaidOnTime: l.EMIsPaidOnTime,
		StartDate:      l.StartDate,
		EndDate:        l.EndDate,
	}
}

// LoanDetail is a loan together with its borrower.
type LoanDetail struct {
	ID                 int64           `json:"loan_id"`
	Customer           CustomerSummary `json:"customer"`
	LoanAmount         decimal.Decimal `json:"loan_amount"`
	InterestRate       decimal.Decimal `json:"interest_rate"`
	MonthlyInstallment decimal.Decimal `json:"monthly_installment"`
	Tenure             int             `json:"tenure"`
}

// ActiveLoanItem is one entry of a customer's active loan listing.
type ActiveLoanItem struct {
	ID                 int64           `json:"loan_id"`
	LoanAmount         decimal.Decimal `json:"loan_amount"`
	InterestRate       decimal.Decimal `json:"interest_rate"`
	MonthlyInstallment decimal.Decimal `json:"monthly_installment"`
	RepaymentsLeft     int             `json:"repayments_left"`
}

// ToDetail converts a Loan and its borrower to LoanDetail.
func (l *Loan) ToDetail(c *Customer) LoanDetail {
	return LoanDetail{
		ID:                 l.ID,
		Customer:           c.ToSummary(),
		LoanAmount:         l.LoanAmount,
		InterestRate:       l.InterestRate,
		MonthlyInstallment: l.MonthlyInstallment,
		Tenure:             l.TenureMonths,
	}
}

// ToActiveItem converts a Loan to ActiveLoanItem.
func (l *Loan) ToActiveItem() ActiveLoanItem {
	return ActiveLoanItem{
		ID:                 l.ID,
		LoanAmount:         l.LoanAmount,
		InterestRate:       l.InterestRate,
		MonthlyInstallment: l.MonthlyInstallment,
		RepaymentsLeft:     l.RepaymentsLeft(),
	}
}

// BulkInsertResult contains the results of a bulk insert operation.
type BulkInsertResult struct {
	InsertedCount int      `json:"inserted_count"`
	FailedCount   int      `json:"failed_count"`
	Errors        []string `json:"errors,omitempty"`
}

// ImportResult summarises one bulk import batch.
type ImportResult struct {
	BatchID           string   `json:"batch_id"`
	CustomersUpserted int      `json:"customers_upserted"`
	LoansUpserted     int      `json:"loans_upserted"`
	RowsSkipped       int      `json:"rows_skipped"`
	Errors            []string `json:"errors,omitempty"`
}
