package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger operation metrics
	Operations        *prometheus.CounterVec
	OperationErrors   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	MoneyMoved        *prometheus.CounterVec
	FundBalance       prometheus.Gauge

	// Customer metrics
	CustomersOpened prometheus.Counter

	// Concurrency metrics
	TxRetries *prometheus.CounterVec

	// Outbox metrics
	EventsPublished *prometheus.CounterVec
	EventErrors     prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Authentication metrics
	AuthFailures *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates all Prometheus metrics and registers them with reg. A nil reg
// uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		Operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_operations_total",
				Help: "Total ledger operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_operation_errors_total",
				Help: "Total ledger operation errors by type",
			},
			[]string{"operation", "error_type"},
		),
		OperationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loanledger_operation_duration_seconds",
				Help:    "Duration of ledger operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		MoneyMoved: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_money_moved_total",
				Help: "Sum of amounts moved by transaction type",
			},
			[]string{"type"},
		),
		FundBalance: f.NewGauge(prometheus.GaugeOpts{
			Name: "loanledger_fund_balance",
			Help: "Last observed bank fund balance",
		}),

		CustomersOpened: f.NewCounter(prometheus.CounterOpts{
			Name: "loanledger_customers_opened_total",
			Help: "Total number of customer accounts opened",
		}),

		TxRetries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_tx_retries_total",
				Help: "Store transaction retries by reason",
			},
			[]string{"reason"},
		),

		EventsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_events_published_total",
				Help: "Outbox events published by type",
			},
			[]string{"event_type"},
		),
		EventErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "loanledger_event_publish_errors_total",
			Help: "Outbox events that failed to publish",
		}),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loanledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		AuthFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_auth_failures_total",
				Help: "Total authentication failures",
			},
			[]string{"reason"},
		),

		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),
	}
}
