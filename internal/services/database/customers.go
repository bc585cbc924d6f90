package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"credit-line-service/internal/models"
)

const (
	uniqueViolation       = "23505"
	phoneUniqueConstraint = "customers_phone_number_key"
)

const customerColumns = `customer_id, first_name, last_name, age, phone_number, monthly_salary,
		approved_limit, current_debt, total_current_emi, created_at, updated_at`

// CustomerRepository handles customer database operations.
type CustomerRepository struct {
	db *DB
}

// NewCustomerRepository creates a new customer repository.
func NewCustomerRepository(db *DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Create registers a new customer with the given approved limit. A phone
// number already on file yields models.ErrDuplicatePhone.
func (r *CustomerRepository) Create(ctx context.Context, in *models.CustomerCreate, approvedLimit int64) (*models.Customer, error) {
	query := `
		INSERT INTO customers (first_name, last_name, age, phone_number, monthly_salary, approved_limit)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + customerColumns

	row := r.db.pool.QueryRow(ctx, query,
		in.FirstName,
		in.LastName,
		in.Age,
		in.PhoneNumber,
		decimal.NewFromInt(in.MonthlyIncome),
		approvedLimit,
	)

	customer, err := scanCustomer(row)
	if err != nil {
		if isPhoneConflict(err) {
			return nil, models.ErrDuplicatePhone
		}
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return customer, nil
}

// GetByID retrieves a customer by ID.
func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*models.Customer, error) {
	return r.get(ctx, r.db.pool, `SELECT `+customerColumns+` FROM customers WHERE customer_id = $1`, id)
}

// GetByIDForUpdate retrieves a customer and locks the row until tx ends.
func (r *CustomerRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.Customer, error) {
	return r.get(ctx, tx, `SELECT `+customerColumns+` FROM customers WHERE customer_id = $1 FOR UPDATE`, id)
}

func (r *CustomerRepository) get(ctx context.Context, q Querier, query string, id int64) (*models.Customer, error) {
	customer, err := scanCustomer(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return customer, nil
}

// ExistsByPhone reports whether a customer with the phone number exists.
func (r *CustomerRepository) ExistsByPhone(ctx context.Context, phone int64) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM customers WHERE phone_number = $1)", phone,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check phone number: %w", err)
	}
	return exists, nil
}

// UpdateExposure adds the deltas to the customer's current debt and total EMI.
func (r *CustomerRepository) UpdateExposure(ctx context.Context, tx pgx.Tx, id int64, debtDelta, emiDelta decimal.Decimal) error {
	tag, err := tx.Exec(ctx, `
		UPDATE customers
		SET current_debt = current_debt + $2,
			total_current_emi = total_current_emi + $3,
			updated_at = NOW()
		WHERE customer_id = $1`,
		id, debtDelta, emiDelta,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer exposure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrCustomerNotFound
	}
	return nil
}

// RecomputeExposure sets current debt and total EMI of the given customers
// to the sums over their loans that end after asOf.
func (r *CustomerRepository) RecomputeExposure(ctx context.Context, tx pgx.Tx, ids []int64, asOf time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE customers c
		SET current_debt = COALESCE((
				SELECT SUM(l.loan_amount) FROM loans l
				WHERE l.customer_id = c.customer_id AND l.end_date > $2::date), 0),
			total_current_emi = COALESCE((
				SELECT SUM(l.monthly_installment) FROM loans l
				WHERE l.customer_id = c.customer_id AND l.end_date > $2::date), 0),
			updated_at = NOW()
		WHERE c.customer_id = ANY($1::bigint[])`,
		ids, asOf,
	)
	if err != nil {
		return fmt.Errorf("failed to recompute customer exposure: %w", err)
	}
	return nil
}

// BulkUpsert inserts or replaces imported customers inside tx and advances
// the ID sequence past the highest imported ID.
func (r *CustomerRepository) BulkUpsert(ctx context.Context, tx pgx.Tx, customers []*models.CustomerImport, batchID string) (int, error) {
	if len(customers) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, c := range customers {
		batch.Queue(`
			INSERT INTO customers (customer_id, first_name, last_name, age, phone_number, monthly_salary,
				approved_limit, current_debt, total_current_emi, batch_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (customer_id) DO UPDATE SET
				first_name = EXCLUDED.first_name,
				last_name = EXCLUDED.last_name,
				age = EXCLUDED.age,
				phone_number = EXCLUDED.phone_number,
				monthly_salary = EXCLUDED.monthly_salary,
				approved_limit = EXCLUDED.approved_limit,
				current_debt = EXCLUDED.current_debt,
				total_current_emi = EXCLUDED.total_current_emi,
				batch_id = EXCLUDED.batch_id,
				updated_at = NOW()`,
			c.ID,
			c.FirstName,
			c.LastName,
			c.Age,
			c.PhoneNumber,
			c.MonthlySalary,
			c.ApprovedLimit,
			c.CurrentDebt,
			c.TotalCurrentEMI,
			nullableUUID(batchID),
		)
	}

	results := tx.SendBatch(ctx, batch)
	for _, c := range customers {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			if isPhoneConflict(err) {
				return 0, fmt.Errorf("customer %d: %w", c.ID, models.ErrDuplicatePhone)
			}
			return 0, fmt.Errorf("failed to upsert customer %d: %w", c.ID, err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to upsert customers: %w", err)
	}

	if err := advanceSequence(ctx, tx, "customers", "customer_id"); err != nil {
		return 0, err
	}
	return len(customers), nil
}

func scanCustomer(row pgx.Row) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(
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
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func nullableUUID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

func isPhoneConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == phoneUniqueConstraint
}

// advanceSequence moves an identity sequence past the largest stored key so
// that generated IDs never collide with imported ones.
func advanceSequence(ctx context.Context, q Querier, table, column string) error {
	query := fmt.Sprintf(
		`SELECT setval(pg_get_serial_sequence('%[1]s', '%[2]s'), GREATEST((SELECT MAX(%[2]s) FROM %[1]s), 1))`,
		table, column,
	)
	if _, err := q.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to advance %s sequence: %w", table, err)
	}
	return nil
}
