// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EligibilityDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_eligibility_decisions_total",
			Help: "Total number of eligibility decisions by outcome",
		},
		[]string{"operation", "outcome"},
	)

	CreditScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "credit_score",
			Help:    "Distribution of computed credit scores",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	LoansCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "credit_loans_created_total",
			Help: "Total number of loans booked",
		},
	)

	CustomersRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "credit_customers_registered_total",
			Help: "Total number of customers registered",
		},
	)

	IngestRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_ingest_rows_total",
			Help: "Rows processed by bulk ingest",
		},
		[]string{"kind", "result"},
	)

	NotificationsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "credit_notifications_failed_total",
			Help: "Loan approval notifications that could not be sent",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "credit_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
)

// Outcome labels a decision for EligibilityDecisions.
func Outcome(approved bool) string {
	if approved {
		return "approved"
	}
	return "rejected"
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
