package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	ledgerOperationsTotal *prometheus.CounterVec
	ledgerLatencySeconds  *prometheus.HistogramVec
	paymentRetriesTotal   prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the ledger API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escola_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "escola_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escola_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		ledgerOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escola_ledger_operations_total",
			Help: "Ledger operations by outcome (ok or error kind).",
		}, []string{"operation", "outcome"})

		ledgerLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "escola_ledger_operation_seconds",
			Help:    "Latency distribution for ledger operations.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 5.0, 30.0},
		}, []string{"operation"})

		paymentRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "escola_payment_retries_total",
			Help: "Payment transactions retried after a serialization failure.",
		})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			ledgerOperationsTotal, ledgerLatencySeconds, paymentRetriesTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// ObserveLedgerOperation records the outcome and duration of a ledger operation.
func ObserveLedgerOperation(operation, outcome string, elapsed time.Duration) {
	RegisterMetrics()
	ledgerOperationsTotal.WithLabelValues(operation, outcome).Inc()
	ledgerLatencySeconds.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// LedgerOperations exposes the ledger operation counter.
func LedgerOperations() *prometheus.CounterVec {
	RegisterMetrics()
	return ledgerOperationsTotal
}

// PaymentRetries exposes the payment retry counter.
func PaymentRetries() prometheus.Counter {
	RegisterMetrics()
	return paymentRetriesTotal
}
