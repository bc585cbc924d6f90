// Package models defines the data structures for the credit line service.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"credit-line-service/internal/services/credit"
)

// Customer represents a registered borrower.
type Customer struct {
	ID              int64           `json:"customer_id" db:"customer_id"`
	FirstName       string          `json:"first_name" db:"first_name"`
	LastName        string          `json:"last_name" db:"last_name"`
	Age             int             `json:"age" db:"age"`
	PhoneNumber     int64           `json:"phone_number" db:"phone_number"`
	MonthlySalary   decimal.Decimal `json:"monthly_salary" db:"monthly_salary"`
	ApprovedLimit   int64           `json:"approved_limit" db:"approved_limit"`
	CurrentDebt     decimal.Decimal `json:"current_debt" db:"current_debt"`
	TotalCurrentEMI decimal.Decimal `json:"total_current_emi" db:"total_current_emi"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// FullName joins first and last name.
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Profile returns the scoring snapshot of the customer.
func (c *Customer) Profile() credit.Profile {
	return credit.Profile{
		MonthlyIncome: c.MonthlySalary,
		ApprovedLimit: c.ApprovedLimit,
		CurrentDebt:   c.CurrentDebt,
		CurrentEMI:    c.TotalCurrentEMI,
	}
}

// ToSummary converts a Customer to CustomerSummary.
func (c *Customer) ToSummary() CustomerSummary {
	return CustomerSummary{
		ID:          c.ID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		PhoneNumber: c.PhoneNumber,
		Age:         c.Age,
	}
}

// CustomerSummary is the customer block nested in loan views.
type CustomerSummary struct {
	ID          int64  `json:"customer_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber int64  `json:"phone_number"`
	Age         int    `json:"age"`
}

// CustomerCreate represents the data needed to register a new customer.
type CustomerCreate struct {
	FirstName     string `json:"first_name" validate:"required,max=100"`
	LastName      string `json:"last_name" validate:"required,max=100"`
	Age           int    `json:"age" validate:"required,gte=18,lte=120"`
	MonthlyIncome int64  `json:"monthly_income" validate:"required,gte=1"`
	PhoneNumber   int64  `json:"phone_number" validate:"required,gt=0"`
}

// CustomerImport is a customer row from a bulk import. IDs and exposure
// figures come from the source data rather than being assigned.
type CustomerImport struct {
	ID              int64
	FirstName       string
	LastName        string
	Age             int
	PhoneNumber     int64
	MonthlySalary   decimal.Decimal
	ApprovedLimit   int64
	CurrentDebt     decimal.Decimal
	TotalCurrentEMI decimal.Decimal
}

// ApprovedLimitFor derives a credit limit from monthly income: multiplier
// times the income, rounded to the nearest multiple of step. Ties go to the
// even multiple.
func ApprovedLimitFor(monthlyIncome decimal.Decimal, multiplier, step int64) int64 {
	if step <= 0 {
		step = 1
	}
	raw := monthlyIncome.Mul(decimal.NewFromInt(multiplier))
	units := raw.DivRound(decimal.NewFromInt(step), 8).RoundBank(0)
	return units.IntPart() * step
}

// RegisterResponse is returned after a customer is registered.
type RegisterResponse struct {
	ID            int64           `json:"customer_id"`
	Name          string          `json:"name"`
	Age           int             `json:"age"`
	MonthlyIncome decimal.Decimal `json:"monthly_income"`
	ApprovedLimit int64           `json:"approved_limit"`
	PhoneNumber   int64           `json:"phone_number"`
}

// ToRegisterResponse converts a Customer to RegisterResponse.
func (c *Customer) ToRegisterResponse() RegisterResponse {
	return RegisterResponse{
		ID:            c.ID,
		Name:          c.FullName(),
		Age:           c.Age,
		MonthlyIncome: c.MonthlySalary,
		ApprovedLimit: c.ApprovedLimit,
		PhoneNumber:   c.PhoneNumber,
	}
}
