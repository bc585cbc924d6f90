// Package ingest loads customer and loan sheets into the database.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"credit-line-service/internal/metrics"
	"credit-line-service/internal/models"
	"credit-line-service/internal/utils"
)

// maxReportedErrors caps the row errors carried in an ImportResult.
const maxReportedErrors = 20

// Sheet level errors.
var (
	ErrNoCustomers = errors.New("no valid customers in sheet")
	ErrNoLoans     = errors.New("no valid loans in sheet")
)

// Store persists one import batch atomically.
type Store interface {
	Import(ctx context.Context, batchID string, customers []*models.CustomerImport, loans []*models.LoanImport) (*models.ImportResult, error)
}

// Sheet is a named spreadsheet file. The name picks the format.
type Sheet struct {
	Name    string
	Content []byte
}

// Service parses sheets and hands the rows to a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a new ingest service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock replaces time.Now when deciding which loans are active.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// IngestFiles reads both sheets from disk and ingests them.
func (s *Service) IngestFiles(ctx context.Context, customerPath, loanPath string) (*models.ImportResult, error) {
	customers, err := readSheet(customerPath)
	if err != nil {
		return nil, err
	}
	loans, err := readSheet(loanPath)
	if err != nil {
		return nil, err
	}
	return s.Ingest(ctx, customers, loans)
}

// Ingest parses the sheets, derives each customer's current debt and EMI
// from loans still active today and stores everything as one batch.
func (s *Service) Ingest(ctx context.Context, customerSheet, loanSheet Sheet) (*models.ImportResult, error) {
	logger := utils.GetLogger()
	batchID := uuid.New().String()
	parser := utils.NewSheetParser()

	customerRecords, err := utils.ReadSheet(customerSheet.Name, customerSheet.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", customerSheet.Name, err)
	}
	customers, customerErrs := parser.ParseCustomers(customerRecords)
	if len(customers) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoCustomers, errors.Join(customerErrs...))
	}

	loanRecords, err := utils.ReadSheet(loanSheet.Name, loanSheet.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", loanSheet.Name, err)
	}
	loans, loanErrs := parser.ParseLoans(loanRecords)
	if len(loans) == 0 && len(loanErrs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoLoans, errors.Join(loanErrs...))
	}

	metrics.IngestRows.WithLabelValues("customer", "parsed").Add(float64(len(customers)))
	metrics.IngestRows.WithLabelValues("customer", "invalid").Add(float64(len(customerErrs)))
	metrics.IngestRows.WithLabelValues("loan", "parsed").Add(float64(len(loans)))
	metrics.IngestRows.WithLabelValues("loan", "invalid").Add(float64(len(loanErrs)))

	logger.Info("Parsed sheets",
		utils.String("batchID", batchID),
		utils.Int("customers", len(customers)),
		utils.Int("loans", len(loans)),
		utils.Int("invalidRows", len(customerErrs)+len(loanErrs)),
	)

	DeriveExposure(customers, loans, s.now())

	result, err := s.store.Import(ctx, batchID, customers, loans)
	if err != nil {
		return nil, err
	}
	metrics.IngestRows.WithLabelValues("loan", "skipped").Add(float64(result.RowsSkipped))

	result.RowsSkipped += len(customerErrs) + len(loanErrs)
	result.Errors = append(errorStrings(customerSheet.Name, customerErrs), append(errorStrings(loanSheet.Name, loanErrs), result.Errors...)...)
	if len(result.Errors) > maxReportedErrors {
		result.Errors = result.Errors[:maxReportedErrors]
	}

	logger.Info("Ingest completed",
		utils.String("batchID", batchID),
		utils.Int("customersUpserted", result.CustomersUpserted),
		utils.Int("loansUpserted", result.LoansUpserted),
		utils.Int("rowsSkipped", result.RowsSkipped),
	)
	return result, nil
}

// DeriveExposure sets every customer's current debt and total EMI to the
// sums over their loans whose end date is after asOf. Customers without
// active loans end up with zero exposure.
func DeriveExposure(customers []*models.CustomerImport, loans []*models.LoanImport, asOf time.Time) {
	type exposure struct{ debt, emi decimal.Decimal }
	byCustomer := make(map[int64]exposure)

	for _, l := range loans {
		if !l.Record().IsActive(asOf) {
			continue
		}
		e := byCustomer[l.CustomerID]
		e.debt = e.debt.Add(l.LoanAmount)
		e.emi = e.emi.Add(l.MonthlyInstallment)
		byCustomer[l.CustomerID] = e
	}

	for _, c := range customers {
		e := byCustomer[c.ID]
		c.CurrentDebt = e.debt
		c.TotalCurrentEMI = e.emi
	}
}

func readSheet(path string) (Sheet, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Sheet{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Sheet{Name: filepath.Base(path), Content: content}, nil
}

func errorStrings(source string, errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, fmt.Sprintf("%s: %v", source, e))
	}
	return out
}
