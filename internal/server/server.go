// Package server exposes the lending operations over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"

	"credit-line-service/internal/handlers"
	"credit-line-service/internal/metrics"
	"credit-line-service/internal/models"
	"credit-line-service/internal/services/ingest"
	"credit-line-service/internal/services/lending"
	"credit-line-service/internal/utils"
)

const (
	maxBodyBytes   = 1 << 20
	maxUploadBytes = 32 << 20
)

// Lending is the set of operations served by the API.
type Lending interface {
	Register(ctx context.Context, in *models.CustomerCreate) (*models.Customer, error)
	CheckEligibility(ctx context.Context, req *models.LoanRequest) (*models.EligibilityResponse, error)
	CreateLoan(ctx context.Context, req *models.LoanRequest) (*models.CreateLoanResponse, error)
	ViewLoan(ctx context.Context, loanID int64) (*models.LoanDetail, error)
	ViewLoans(ctx context.Context, customerID int64) ([]models.ActiveLoanItem, error)
	Quote(amount, rate decimal.Decimal, tenure int) (*models.QuoteResponse, error)
}

// Ingester runs a sheet import.
type Ingester interface {
	Ingest(ctx context.Context, customers, loans ingest.Sheet) (*models.ImportResult, error)
}

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Server holds all dependencies
type Server struct {
	lending  Lending
	ingester Ingester
	health   *handlers.HealthHandler
}

// New creates a server. ingester may be nil, which disables POST /ingest.
func New(lending Lending, ingester Ingester, health *handlers.HealthHandler) *Server {
	if health == nil {
		health = handlers.NewHealthHandler(nil, "", "")
	}
	return &Server{lending: lending, ingester: ingester, health: health}
}

// Routes builds the HTTP handler with CORS and request metrics applied.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(instrument)

	r.HandleFunc("/register", s.register).Methods(http.MethodPost)
	r.HandleFunc("/check-eligibility", s.checkEligibility).Methods(http.MethodPost)
	r.HandleFunc("/create-loan", s.createLoan).Methods(http.MethodPost)
	r.HandleFunc("/view-loan/{loan_id}", s.viewLoan).Methods(http.MethodGet)
	r.HandleFunc("/view-loans/{customer_id}", s.viewLoans).Methods(http.MethodGet)
	r.HandleFunc("/quote", s.quote).Methods(http.MethodGet)
	if s.ingester != nil {
		r.HandleFunc("/ingest", s.ingest).Methods(http.MethodPost)
	}
	r.HandleFunc("/health", s.healthCheck).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Error: "route not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Success: false, Error: "method not allowed"})
	})

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in models.CustomerCreate
	if !decodeBody(w, r, &in) {
		return
	}

	customer, err := s.lending.Register(r.Context(), &in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Response{Success: true, Data: customer.ToRegisterResponse()})
}

func (s *Server) checkEligibility(w http.ResponseWriter, r *http.Request) {
	var req models.LoanRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.lending.CheckEligibility(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: result.Message, Data: result})
}

func (s *Server) createLoan(w http.ResponseWriter, r *http.Request) {
	var req models.LoanRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.lending.CreateLoan(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if result.LoanApproved {
		status = http.StatusCreated
	}
	writeJSON(w, status, Response{Success: true, Message: result.Message, Data: result})
}

func (s *Server) viewLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "loan_id")
	if !ok {
		return
	}

	detail, err := s.lending.ViewLoan(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: detail})
}

func (s *Server) viewLoans(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "customer_id")
	if !ok {
		return
	}

	loans, err := s.lending.ViewLoans(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: loans})
}

func (s *Server) quote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fields := map[string]string{}

	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		fields["amount"] = "must be a number"
	}
	rate, err := decimal.NewFromString(q.Get("rate"))
	if err != nil {
		fields["rate"] = "must be a number"
	}
	tenure, err := strconv.Atoi(q.Get("tenure"))
	if err != nil {
		fields["tenure"] = "must be a whole number"
	}
	if len(fields) > 0 {
		writeError(w, &models.ValidationError{Fields: fields})
		return
	}

	result, err := s.lending.Quote(amount, rate, tenure)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: result})
}

func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Failed to parse form: " + err.Error()})
		return
	}

	customers, err := formSheet(r, "customers")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}
	loans, err := formSheet(r, "loans")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	result, err := s.ingester.Ingest(r.Context(), customers, loans)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Sheets ingested successfully", Data: result})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	report, status := s.health.Check(r.Context())
	writeJSON(w, status, Response{Success: status == http.StatusOK, Data: report})
}

func formSheet(r *http.Request, field string) (ingest.Sheet, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return ingest.Sheet{}, errors.New("missing file field " + strconv.Quote(field))
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return ingest.Sheet{}, errors.New("failed to read " + header.Filename)
	}
	return ingest.Sheet{Name: header.Filename, Content: content}, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, &models.ValidationError{Fields: map[string]string{name: "must be a positive integer"}})
		return 0, false
	}
	return id, true
}

// writeError maps service errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: verr.Error(), Data: verr.Fields})
	case errors.Is(err, models.ErrCustomerNotFound), errors.Is(err, models.ErrLoanNotFound):
		writeJSON(w, http.StatusNotFound, Response{Success: false, Error: err.Error()})
	case errors.Is(err, models.ErrDuplicatePhone):
		writeJSON(w, http.StatusConflict, Response{Success: false, Error: err.Error()})
	case lending.IsClientError(err),
		errors.Is(err, ingest.ErrNoCustomers),
		errors.Is(err, ingest.ErrNoLoans),
		errors.Is(err, utils.ErrEmptySheet),
		errors.Is(err, utils.ErrUnsupportedSheet):
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	default:
		utils.GetLogger().Error("Request failed", utils.Error(err))
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument records request durations by route template.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}
