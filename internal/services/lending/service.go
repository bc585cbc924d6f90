// Package lending ties the credit engine to storage: it registers customers,
// evaluates loan requests and books approved loans.
package lending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"credit-line-service/internal/metrics"
	"credit-line-service/internal/models"
	"credit-line-service/internal/services/credit"
	"credit-line-service/internal/utils"
)

// MessageLoanBooked replaces the engine message once a loan is stored.
const MessageLoanBooked = "Loan approved and processed successfully."

// CustomerStore reads and registers customers.
type CustomerStore interface {
	Create(ctx context.Context, in *models.CustomerCreate, approvedLimit int64) (*models.Customer, error)
	GetByID(ctx context.Context, id int64) (*models.Customer, error)
	ExistsByPhone(ctx context.Context, phone int64) (bool, error)
}

// LoanStore reads loans.
type LoanStore interface {
	GetByID(ctx context.Context, id int64) (*models.Loan, *models.Customer, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]*models.Loan, error)
	ListActiveByCustomer(ctx context.Context, customerID int64, asOf time.Time) ([]*models.Loan, error)
}

// Booker runs decide against a locked customer and stores the loan it
// returns together with the customer's new exposure.
type Booker interface {
	Book(
		ctx context.Context,
		customerID int64,
		decide func(customer *models.Customer, history []*models.Loan) (*models.LoanCreate, error),
	) (*models.Loan, error)
}

// Notifier is told about every booked loan.
type Notifier interface {
	NotifyLoanApproved(ctx context.Context, customer *models.Customer, loan *models.Loan) error
}

// Settings are the lending parameters that come from configuration.
type Settings struct {
	LimitMultiplier int64
	LimitRounding   int64
}

// Option customises a Service.
type Option func(*Service)

// WithNotifier sends approval notifications through n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPolicy replaces credit.DefaultPolicy.
func WithPolicy(p credit.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// Service implements the lending operations.
type Service struct {
	customers CustomerStore
	loans     LoanStore
	booker    Booker
	settings  Settings
	policy    credit.Policy
	notifier  Notifier
	now       func() time.Time
}

// NewService creates a new lending service.
func NewService(customers CustomerStore, loans LoanStore, booker Booker, settings Settings, opts ...Option) *Service {
	if settings.LimitMultiplier <= 0 {
		settings.LimitMultiplier = 36
	}
	if settings.LimitRounding <= 0 {
		settings.LimitRounding = 100000
	}

	s := &Service{
		customers: customers,
		loans:     loans,
		booker:    booker,
		settings:  settings,
		policy:    credit.DefaultPolicy,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a customer whose approved limit is derived from income.
func (s *Service) Register(ctx context.Context, in *models.CustomerCreate) (*models.Customer, error) {
	if err := models.ValidateStruct(in); err != nil {
		return nil, err
	}

	// The engine cannot score a customer without a positive limit.
	limit := models.ApprovedLimitFor(decimal.NewFromInt(in.MonthlyIncome), s.settings.LimitMultiplier, s.settings.LimitRounding)
	if limit <= 0 {
		return nil, &models.ValidationError{Fields: map[string]string{
			"monthly_income": "is too low to qualify for a credit limit",
		}}
	}

	exists, err := s.customers.ExistsByPhone(ctx, in.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.ErrDuplicatePhone
	}

	customer, err := s.customers.Create(ctx, in, limit)
	if err != nil {
		return nil, err
	}

	metrics.CustomersRegistered.Inc()
	utils.GetLogger().Info("Customer registered",
		utils.Int64("customerID", customer.ID),
		utils.Int64("approvedLimit", customer.ApprovedLimit),
	)
	return customer, nil
}

// CheckEligibility scores the customer and decides the request without
// storing anything.
func (s *Service) CheckEligibility(ctx context.Context, req *models.LoanRequest) (*models.EligibilityResponse, error) {
	if err := models.ValidateStruct(req); err != nil {
		return nil, err
	}

	customer, err := s.customers.GetByID(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	history, err := s.loans.ListByCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	score, decision, err := s.evaluate(customer, history, req)
	if err != nil {
		return nil, err
	}
	metrics.EligibilityDecisions.WithLabelValues("check", metrics.Outcome(decision.Approved)).Inc()

	return &models.EligibilityResponse{
		CustomerID:            customer.ID,
		Approval:              decision.Approved,
		InterestRate:          decision.InterestRate,
		CorrectedInterestRate: decision.CorrectedInterestRate,
		Tenure:                decision.TenureMonths,
		MonthlyInstallment:    decision.MonthlyInstallment,
		CreditScore:           score,
		Message:               decision.Message,
	}, nil
}

// CreateLoan re-evaluates the request against the locked customer record
// and books the loan when it is approved.
func (s *Service) CreateLoan(ctx context.Context, req *models.LoanRequest) (*models.CreateLoanResponse, error) {
	if err := models.ValidateStruct(req); err != nil {
		return nil, err
	}

	resp := &models.CreateLoanResponse{CustomerID: req.CustomerID}
	var borrower *models.Customer

	loan, err := s.booker.Book(ctx, req.CustomerID, func(customer *models.Customer, history []*models.Loan) (*models.LoanCreate, error) {
		score, decision, err := s.evaluate(customer, history, req)
		if err != nil {
			return nil, err
		}

		borrower = customer
		resp.LoanApproved = decision.Approved
		resp.Message = decision.Message
		resp.MonthlyInstallment = decision.MonthlyInstallment
		resp.CreditScore = score
		if !decision.Approved {
			return nil, nil
		}

		start := startOfDay(s.now())
		return &models.LoanCreate{
			CustomerID:         customer.ID,
			LoanAmount:         req.LoanAmount,
			TenureMonths:       req.Tenure,
			InterestRate:       decision.CorrectedInterestRate,
			MonthlyInstallment: decision.MonthlyInstallment,
			StartDate:          start,
			EndDate:            AddMonths(start, req.Tenure),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	metrics.EligibilityDecisions.WithLabelValues("create", metrics.Outcome(resp.LoanApproved)).Inc()

	if loan == nil {
		return resp, nil
	}

	resp.LoanID = &loan.ID
	resp.Message = MessageLoanBooked
	metrics.LoansCreated.Inc()
	utils.GetLogger().Info("Loan booked",
		utils.Int64("loanID", loan.ID),
		utils.Int64("customerID", loan.CustomerID),
		utils.Stringer("amount", loan.LoanAmount),
		utils.Stringer("rate", loan.InterestRate),
	)

	s.notify(ctx, borrower, loan)
	return resp, nil
}

// ViewLoan returns a loan with its borrower.
func (s *Service) ViewLoan(ctx context.Context, loanID int64) (*models.LoanDetail, error) {
	loan, customer, err := s.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	detail := loan.ToDetail(customer)
	return &detail, nil
}

// ViewLoans lists the customer's loans that are still running today.
func (s *Service) ViewLoans(ctx context.Context, customerID int64) ([]models.ActiveLoanItem, error) {
	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		return nil, err
	}

	loans, err := s.loans.ListActiveByCustomer(ctx, customerID, startOfDay(s.now()))
	if err != nil {
		return nil, err
	}

	items := make([]models.ActiveLoanItem, 0, len(loans))
	for _, l := range loans {
		items = append(items, l.ToActiveItem())
	}
	return items, nil
}

// Quote computes the installment for a loan without looking at any customer.
func (s *Service) Quote(amount, rate decimal.Decimal, tenure int) (*models.QuoteResponse, error) {
	if !amount.IsPositive() {
		return nil, credit.ErrInvalidPrincipal
	}
	if tenure <= 0 {
		return nil, credit.ErrInvalidTenure
	}

	installment, err := credit.Installment(amount, rate, tenure)
	if err != nil {
		return nil, err
	}
	return &models.QuoteResponse{
		LoanAmount:         amount,
		InterestRate:       rate,
		Tenure:             tenure,
		MonthlyInstallment: installment,
	}, nil
}

func (s *Service) evaluate(customer *models.Customer, history []*models.Loan, req *models.LoanRequest) (int, credit.Decision, error) {
	profile := customer.Profile()

	score, err := credit.Score(profile, models.Records(history), req.LoanAmount, s.now())
	if err != nil {
		return 0, credit.Decision{}, fmt.Errorf("failed to score customer %d: %w", customer.ID, err)
	}
	metrics.CreditScores.Observe(float64(score))

	decision, err := s.policy.Decide(profile, score, req.LoanAmount, req.InterestRate, req.Tenure)
	if err != nil {
		return 0, credit.Decision{}, fmt.Errorf("failed to decide loan for customer %d: %w", customer.ID, err)
	}
	return score, decision, nil
}

func (s *Service) notify(ctx context.Context, customer *models.Customer, loan *models.Loan) {
	if s.notifier == nil || customer == nil {
		return
	}
	if err := s.notifier.NotifyLoanApproved(ctx, customer, loan); err != nil {
		metrics.NotificationsFailed.Inc()
		utils.GetLogger().Warn("Failed to send approval notification",
			utils.Int64("loanID", loan.ID),
			utils.Error(err),
		)
	}
}

// IsClientError reports whether err is caused by the request rather than by
// the service.
func IsClientError(err error) bool {
	return errors.Is(err, models.ErrValidation) || errors.Is(err, credit.ErrInvalidInput)
}
