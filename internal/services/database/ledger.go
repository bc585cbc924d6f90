package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"credit-line-service/internal/models"
)

// Ledger groups the multi-table writes that must commit atomically.
type Ledger struct {
	db        *DB
	customers *CustomerRepository
	loans     *LoanRepository
	now       func() time.Time
}

// NewLedger creates a ledger over the customer and loan tables.
func NewLedger(db *DB) *Ledger {
	return &Ledger{
		db:        db,
		customers: NewCustomerRepository(db),
		loans:     NewLoanRepository(db),
		now:       time.Now,
	}
}

// Book locks the customer row, passes the locked customer and its loan
// history to decide and, when decide returns a loan, inserts it and adds its
// amount and installment to the customer's exposure. Concurrent bookings for
// the same customer are serialized by the row lock.
func (l *Ledger) Book(
	ctx context.Context,
	customerID int64,
	decide func(customer *models.Customer, history []*models.Loan) (*models.LoanCreate, error),
) (*models.Loan, error) {
	var booked *models.Loan

	err := l.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		customer, err := l.customers.GetByIDForUpdate(ctx, tx, customerID)
		if err != nil {
			return err
		}

		history, err := l.loans.ListByCustomerTx(ctx, tx, customerID)
		if err != nil {
			return err
		}

		in, err := decide(customer, history)
		if err != nil || in == nil {
			return err
		}

		booked, err = l.loans.Create(ctx, tx, in)
		if err != nil {
			return err
		}
		return l.customers.UpdateExposure(ctx, tx, customerID, in.LoanAmount, in.MonthlyInstallment)
	})
	if err != nil {
		return nil, err
	}
	return booked, nil
}

// Import upserts customers and then loans in a single transaction. Customers
// that only appear through the loan sheet get their exposure recomputed from
// all of their stored loans.
func (l *Ledger) Import(ctx context.Context, batchID string, customers []*models.CustomerImport, loans []*models.LoanImport) (*models.ImportResult, error) {
	result := &models.ImportResult{BatchID: batchID, Errors: []string{}}

	err := l.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		n, err := l.customers.BulkUpsert(ctx, tx, customers, batchID)
		if err != nil {
			return err
		}
		result.CustomersUpserted = n

		loanResult, err := l.loans.BulkUpsert(ctx, tx, loans, batchID)
		if err != nil {
			return err
		}
		result.LoansUpserted = loanResult.InsertedCount
		result.RowsSkipped += loanResult.FailedCount
		result.Errors = append(result.Errors, loanResult.Errors...)

		return l.customers.RecomputeExposure(ctx, tx, customersOutsideSheet(customers, loans), l.now().UTC())
	})
	if err != nil {
		return nil, fmt.Errorf("import batch %s failed: %w", batchID, err)
	}
	return result, nil
}

// customersOutsideSheet lists the customer IDs referenced by loans but
// missing from the customer rows.
func customersOutsideSheet(customers []*models.CustomerImport, loans []*models.LoanImport) []int64 {
	inSheet := make(map[int64]bool, len(customers))
	for _, c := range customers {
		inSheet[c.ID] = true
	}

	var ids []int64
	seen := make(map[int64]bool)
	for _, l := range loans {
		if inSheet[l.CustomerID] || seen[l.CustomerID] {
			continue
		}
		seen[l.CustomerID] = true
		ids = append(ids, l.CustomerID)
	}
	return ids
}
