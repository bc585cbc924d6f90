package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"credit-line-service/internal/models"
)

const loanColumns = `l.loan_id, l.customer_id, l.loan_amount, l.tenure, l.interest_rate, l.monthly_installment,
		l.emis_paid_on_time, l.start_date, l.end_date, l.created_at`

const historyQuery = `
		SELECT ` + loanColumns + `
		FROM loans l
		WHERE l.customer_id = $1
		ORDER BY l.loan_id`

// LoanRepository handles loan database operations.
type LoanRepository struct {
	db *DB
}

// NewLoanRepository creates a new loan repository.
func NewLoanRepository(db *DB) *LoanRepository {
	return &LoanRepository{db: db}
}

// Create books a new loan inside tx. New loans start with no paid EMIs.
func (r *LoanRepository) Create(ctx context.Context, tx pgx.Tx, in *models.LoanCreate) (*models.Loan, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO loans AS l (customer_id, loan_amount, tenure, interest_rate, monthly_installment,
			emis_paid_on_time, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
		RETURNING `+loanColumns,
		in.CustomerID,
		in.LoanAmount,
		in.TenureMonths,
		in.InterestRate,
		in.MonthlyInstallment,
		in.StartDate,
		in.EndDate,
	)

	loan, err := scanLoan(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create loan: %w", err)
	}
	return loan, nil
}

// GetByID retrieves a loan together with its borrower.
func (r *LoanRepository) GetByID(ctx context.Context, id int64) (*models.Loan, *models.Customer, error) {
	query := `
		SELECT ` + loanColumns + `,
			c.customer_id, c.first_name, c.last_name, c.age, c.phone_number, c.monthly_salary,
			c.approved_limit, c.current_debt, c.total_current_emi, c.created_at, c.updated_at
		FROM loans l
		JOIN customers c ON c.customer_id = l.customer_id
		WHERE l.loan_id = $1`

	var l models.Loan
	var c models.Customer
	err := r.db.pool.QueryRow(ctx, query, id).Scan(
		&l.ID,
		&l.CustomerID,
		&l.LoanAmount,
		&l.TenureMonths,
		&l.InterestRate,
		&l.MonthlyInstallment,
		&l.EMIsPaidOnTime,
		&l.StartDate,
		&l.EndDate,
		&l.CreatedAt,
		&c.ID,
		&c.FirstName,
		&c.LastName,
		&c.Age,
		&c.PhoneNumber,
		&c.MonthlySalary,
		&c.ApprovedLimit,
		&c.CurrentDebt,
		&c.TotalCurrentEMI,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, models.ErrLoanNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return &l, &c, nil
}

// ListByCustomer returns the full loan history of a customer.
func (r *LoanRepository) ListByCustomer(ctx context.Context, customerID int64) ([]*models.Loan, error) {
	return r.list(ctx, r.db.pool, historyQuery, customerID)
}

// ListByCustomerTx reads the loan history inside tx, typically while the
// customer row is locked.
func (r *LoanRepository) ListByCustomerTx(ctx context.Context, tx pgx.Tx, customerID int64) ([]*models.Loan, error) {
	return r.list(ctx, tx, historyQuery, customerID)
}

// ListActiveByCustomer returns loans whose end date is after asOf.
func (r *LoanRepository) ListActiveByCustomer(ctx context.Context, customerID int64, asOf time.Time) ([]*models.Loan, error) {
	return r.list(ctx, r.db.pool, `
		SELECT `+loanColumns+`
		FROM loans l
		WHERE l.customer_id = $1 AND l.end_date > $2::date
		ORDER BY l.loan_id`, customerID, asOf.UTC().Format(time.DateOnly))
}

func (r *LoanRepository) list(ctx context.Context, q Querier, query string, args ...any) ([]*models.Loan, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	loans := []*models.Loan{}
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate loans: %w", err)
	}
	return loans, nil
}

// BulkUpsert inserts or replaces imported loans inside tx. Loans whose
// customer does not exist are skipped and reported in the result.
func (r *LoanRepository) BulkUpsert(ctx context.Context, tx pgx.Tx, loans []*models.LoanImport, batchID string) (*models.BulkInsertResult, error) {
	result := &models.BulkInsertResult{Errors: []string{}}
	if len(loans) == 0 {
		return result, nil
	}

	batch := &pgx.Batch{}
	for _, l := range loans {
		batch.Queue(`
			INSERT INTO loans (loan_id, customer_id, loan_amount, tenure, interest_rate, monthly_installment,
				emis_paid_on_time, start_date, end_date, batch_id)
			SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
			WHERE EXISTS (SELECT 1 FROM customers WHERE customer_id = $2)
			ON CONFLICT (loan_id) DO UPDATE SET
				customer_id = EXCLUDED.customer_id,
				loan_amount = EXCLUDED.loan_amount,
				tenure = EXCLUDED.tenure,
				interest_rate = EXCLUDED.interest_rate,
				monthly_installment = EXCLUDED.monthly_installment,
				emis_paid_on_time = EXCLUDED.emis_paid_on_time,
				start_date = EXCLUDED.start_date,
				end_date = EXCLUDED.end_date,
				batch_id = EXCLUDED.batch_id`,
			l.ID,
			l.CustomerID,
			l.LoanAmount,
			l.TenureMonths,
			l.InterestRate,
			l.MonthlyInstallment,
			l.EMIsPaidOnTime,
			l.StartDate,
			l.EndDate,
			nullableUUID(batchID),
		)
	}

	results := tx.SendBatch(ctx, batch)
	for _, l := range loans {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return nil, fmt.Errorf("failed to upsert loan %d: %w", l.ID, err)
		}
		if tag.RowsAffected() == 0 {
			result.FailedCount++
			result.Errors = append(result.Errors, fmt.Sprintf("loan %d: unknown customer %d", l.ID, l.CustomerID))
			continue
		}
		result.InsertedCount++
	}
	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("failed to upsert loans: %w", err)
	}

	if err := advanceSequence(ctx, tx, "loans", "loan_id"); err != nil {
		return nil, err
	}
	return result, nil
}

func scanLoan(row pgx.Row) (*models.Loan, error) {
	var l models.Loan
	err := row.Scan(
		&l.ID,
		&l.CustomerID,
		&l.LoanAmount,
		&l.TenureMonths,
		&l.InterestRate,
		&l.MonthlyInstallment,
		&l.EMIsPaidOnTime,
		&l.StartDate,
		&l.EndDate,
		&l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
