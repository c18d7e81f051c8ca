// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the glatt service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// BatchBuckets defines histogram buckets suited for batch normalization
// runs, ranging from 1ms to 30s.
var BatchBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glatt_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "glatt_request_duration_seconds",
			Help:    "Request duration",
			Buckets: BatchBuckets,
		},
		[]string{"method"},
	)

	// RunsInFlight tracks the number of batch runs currently executing.
	RunsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "glatt_runs_in_flight",
			Help: "Batch runs currently executing",
		},
	)

	// RunsTotal counts batch runs by mode (strict/lenient) and outcome.
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glatt_runs_total",
			Help: "Batch runs",
		},
		[]string{"mode", "status"},
	)

	// RunDuration records batch run duration in seconds by mode.
	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "glatt_run_duration_seconds",
			Help:    "Batch run duration",
			Buckets: BatchBuckets,
		},
		[]string{"mode"},
	)

	// RecordsProcessedTotal counts records by outcome (normalized,
	// passed_through, failed).
	RecordsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glatt_records_processed_total",
			Help: "Records processed",
		},
		[]string{"outcome"},
	)

	// FieldsCoercedTotal counts null-to-empty coercions by field name.
	FieldsCoercedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glatt_fields_coerced_total",
			Help: "Field coercions",
		},
		[]string{"field"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glatt_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		RunsInFlight,
		RunsTotal,
		RunDuration,
		RecordsProcessedTotal,
		FieldsCoercedTotal,
		RateLimitRejectedTotal,
	)
}
