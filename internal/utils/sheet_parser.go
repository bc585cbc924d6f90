// Package utils provides logging and spreadsheet helpers for the credit line service.
package utils

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"credit-line-service/internal/models"
)

// Sheet parser errors
var (
	ErrEmptySheet       = errors.New("sheet content is empty")
	ErrMissingColumns   = errors.New("missing required columns")
	ErrNoDataRows       = errors.New("sheet contains no valid data rows")
	ErrUnsupportedSheet = errors.New("unsupported sheet format")
)

// CustomerColumns are the columns required in a customer sheet.
var CustomerColumns = []string{
	"customer_id",
	"first_name",
	"last_name",
	"age",
	"phone_number",
	"monthly_salary",
	"approved_limit",
}

// LoanColumns are the columns required in a loan sheet.
var LoanColumns = []string{
	"customer_id",
	"loan_id",
	"loan_amount",
	"tenure",
	"interest_rate",
	"monthly_installment",
	"emis_paid_on_time",
	"start_date",
	"end_date",
}

// ColumnAliases maps alternative column names to standard names.
// Headers are lower-cased and have spaces replaced by underscores before lookup.
var ColumnAliases = map[string]string{
	"customerid":       "customer_id",
	"firstname":        "first_name",
	"lastname":         "last_name",
	"phone":            "phone_number",
	"phonenumber":      "phone_number",
	"mobile":           "phone_number",
	"salary":           "monthly_salary",
	"monthly_income":   "monthly_salary",
	"income":           "monthly_salary",
	"limit":            "approved_limit",
	"credit_limit":     "approved_limit",
	"loanid":           "loan_id",
	"amount":           "loan_amount",
	"principal":        "loan_amount",
	"tenure_months":    "tenure",
	"rate":             "interest_rate",
	"monthly_payment":  "monthly_installment",
	"emi":              "monthly_installment",
	"emis_paid":        "emis_paid_on_time",
	"date_of_approval": "start_date",
	"approval_date":    "start_date",
	"start":            "start_date",
	"end":              "end_date",
	"maturity_date":    "end_date",
	"loan_end_date":    "end_date",
	"date_of_end":      "end_date",
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1-2-06",
	"02-Jan-2006",
	"2 January 2006",
}

// ReadSheet returns the raw records of a CSV or XLSX file, header first.
// The format is picked from the file name extension.
func ReadSheet(name string, content []byte) ([][]string, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, ErrEmptySheet
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", "":
		return readCSV(content)
	case ".xlsx", ".xlsm":
		return readXLSX(content)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSheet, name)
	}
}

func readCSV(content []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // Allow variable number of fields

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// readXLSX reads the first worksheet of a workbook.
func readXLSX(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// SheetParser turns raw sheet records into import rows.
type SheetParser struct {
	columnMapping map[string]int
}

// NewSheetParser creates a new sheet parser instance.
func NewSheetParser() *SheetParser {
	return &SheetParser{columnMapping: make(map[string]int)}
}

// ParseCustomers parses customer records. Invalid rows are reported as errors
// tagged with their line number and skipped.
func (p *SheetParser) ParseCustomers(records [][]string) ([]*models.CustomerImport, []error) {
	var customers []*models.CustomerImport
	errs := p.eachRow(records, CustomerColumns, func(get func(string) string) error {
		c, err := parseCustomerRow(get)
		if err != nil {
			return err
		}
		customers = append(customers, c)
		return nil
	})

	if len(customers) == 0 && len(errs) > 0 {
		return nil, append([]error{ErrNoDataRows}, errs...)
	}
	return customers, errs
}

// ParseLoans parses loan records. Invalid rows are reported and skipped.
func (p *SheetParser) ParseLoans(records [][]string) ([]*models.LoanImport, []error) {
	var loans []*models.LoanImport
	errs := p.eachRow(records, LoanColumns, func(get func(string) string) error {
		l, err := parseLoanRow(get)
		if err != nil {
			return err
		}
		loans = append(loans, l)
		return nil
	})

	if len(loans) == 0 && len(errs) > 0 {
		return nil, append([]error{ErrNoDataRows}, errs...)
	}
	return loans, errs
}

func (p *SheetParser) eachRow(records [][]string, required []string, fn func(get func(string) string) error) []error {
	if len(records) == 0 {
		return []error{ErrEmptySheet}
	}
	if err := p.buildColumnMapping(records[0], required); err != nil {
		return []error{err}
	}

	var errs []error
	for i, record := range records[1:] {
		lineNum := i + 2 // Header is line 1
		if isBlank(record) {
			continue
		}
		get := func(column string) string {
			idx, ok := p.columnMapping[column]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}
		if err := fn(get); err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", lineNum, err))
		}
	}
	return errs
}

// buildColumnMapping creates a mapping of standard column names to their indices.
func (p *SheetParser) buildColumnMapping(header []string, required []string) error {
	p.columnMapping = make(map[string]int)

	for i, col := range header {
		normalized := NormalizeHeader(col)
		if alias, ok := ColumnAliases[normalized]; ok {
			normalized = alias
		}
		if _, seen := p.columnMapping[normalized]; !seen {
			p.columnMapping[normalized] = i
		}
	}

	var missing []string
	for _, col := range required {
		if _, ok := p.columnMapping[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

// NormalizeHeader lower-cases a header and joins its words with underscores.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	h = strings.NewReplacer("-", " ", ".", " ").Replace(h)
	return strings.Join(strings.Fields(h), "_")
}

func parseCustomerRow(get func(string) string) (*models.CustomerImport, error) {
	id, err := parseInt(get("customer_id"))
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid customer_id %q", get("customer_id"))
	}
	age, err := parseInt(get("age"))
	if err != nil {
		return nil, fmt.Errorf("invalid age: %w", err)
	}
	phone, err := parseInt(get("phone_number"))
	if err != nil {
		return nil, fmt.Errorf("invalid phone_number: %w", err)
	}
	salary, err := parseDecimal(get("monthly_salary"))
	if err != nil {
		return nil, fmt.Errorf("invalid monthly_salary: %w", err)
	}
	limit, err := parseDecimal(get("approved_limit"))
	if err != nil {
		return nil, fmt.Errorf("invalid approved_limit: %w", err)
	}

	c := &models.CustomerImport{
		ID:              id,
		FirstName:       get("first_name"),
		LastName:        get("last_name"),
		Age:             int(age),
		PhoneNumber:     phone,
		MonthlySalary:   salary,
		ApprovedLimit:   limit.Round(0).IntPart(),
		CurrentDebt:     decimal.Zero,
		TotalCurrentEMI: decimal.Zero,
	}

	switch {
	case c.FirstName == "":
		return nil, errors.New("first_name is required")
	case c.Age <= 0:
		return nil, errors.New("age must be positive")
	case !c.MonthlySalary.IsPositive():
		return nil, errors.New("monthly_salary must be positive")
	case c.ApprovedLimit <= 0:
		return nil, errors.New("approved_limit must be positive")
	}
	return c, nil
}

func parseLoanRow(get func(string) string) (*models.LoanImport, error) {
	customerID, err := parseInt(get("customer_id"))
	if err != nil || customerID <= 0 {
		return nil, fmt.Errorf("invalid customer_id %q", get("customer_id"))
	}
	loanID, err := parseInt(get("loan_id"))
	if err != nil || loanID <= 0 {
		return nil, fmt.Errorf("invalid loan_id %q", get("loan_id"))
	}
	amount, err := parseDecimal(get("loan_amount"))
	if err != nil {
		return nil, fmt.Errorf("invalid loan_amount: %w", err)
	}
	tenure, err := parseInt(get("tenure"))
	if err != nil {
		return nil, fmt.Errorf("invalid tenure: %w", err)
	}
	rate, err := parseDecimal(get("interest_rate"))
	if err != nil {
		return nil, fmt.Errorf("invalid interest_rate: %w", err)
	}
	installment, err := parseDecimal(get("monthly_installment"))
	if err != nil {
		return nil, fmt.Errorf("invalid monthly_installment: %w", err)
	}
	paid, err := parseInt(get("emis_paid_on_time"))
	if err != nil {
		return nil, fmt.Errorf("invalid emis_paid_on_time: %w", err)
	}
	start, err := ParseDate(get("start_date"))
	if err != nil {
		return nil, fmt.Errorf("invalid start_date: %w", err)
	}
	end, err := ParseDate(get("end_date"))
	if err != nil {
		return nil, fmt.Errorf("invalid end_date: %w", err)
	}

	l := &models.LoanImport{
		ID:                 loanID,
		CustomerID:         customerID,
		LoanAmount:         amount,
		TenureMonths:       int(tenure),
		InterestRate:       rate,
		MonthlyInstallment: installment,
		EMIsPaidOnTime:     int(paid),
		StartDate:          start,
		EndDate:            end,
	}

	if l.InterestRate.IsNegative() || l.MonthlyInstallment.IsNegative() {
		return nil, errors.New("interest_rate and monthly_installment cannot be negative")
	}
	if err := l.Record().Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// ParseDate parses the date formats spreadsheets commonly produce, including
// raw Excel serial day numbers.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty value")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// parseDecimal parses a money or rate value, stripping separators and currency symbols.
func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, errors.New("empty value")
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(s, "₹")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)

	return decimal.NewFromString(s)
}

// parseInt parses a string to int64, handling values like "750.0".
func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("empty value")
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if strings.Contains(s, ".") {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return 0, err
		}
		if !d.Equal(d.Truncate(0)) {
			return 0, fmt.Errorf("%q is not a whole number", s)
		}
		return d.IntPart(), nil
	}

	return strconv.ParseInt(s, 10, 64)
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
