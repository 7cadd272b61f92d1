package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LogEntriesTotal counts log entries by level
	LogEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smellsense_log_entries_total",
			Help: "Total number of log entries by level",
		},
		[]string{"level"},
	)

	// LogErrorsTotal counts error-level log entries specifically
	LogErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smellsense_log_errors_total",
			Help: "Total number of error log entries",
		},
	)
)

// =============================================================================
// Comparison Metrics
// =============================================================================

var (
	// ComparisonsTotal counts fingerprint comparisons by outcome
	ComparisonsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smellsense_comparisons_total",
			Help: "Total number of fingerprint comparisons",
		},
		[]string{"status"}, // "ok", "invalid", "error"
	)

	// BestMatchTotal counts how often each signature was the closest match
	BestMatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smellsense_best_match_total",
			Help: "Total number of comparisons won by each signature",
		},
		[]string{"label"},
	)

	// BestMatchScore tracks the distribution of winning similarity scores
	BestMatchScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "smellsense_best_match_score",
			Help:    "Similarity score of the closest signature",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)

	// ComparisonDurationSeconds measures end-to-end comparison latency
	ComparisonDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "smellsense_comparison_duration_seconds",
			Help:    "Duration of fingerprint comparisons",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
	)
)

// =============================================================================
// Transport Metrics
// =============================================================================

var (
	// FlightOperationsTotal counts Flight operations (DoGet, DoAction)
	FlightOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smellsense_flight_operations_total",
			Help: "The total number of processed Arrow Flight operations",
		},
		[]string{"method", "status"},
	)

	// FlightDurationSeconds measures the latency of Flight operations
	FlightDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smellsense_flight_duration_seconds",
			Help:    "Duration of Arrow Flight operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// HTTPRequestsTotal counts HTTP API requests by route and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smellsense_http_requests_total",
			Help: "Total number of HTTP API requests",
		},
		[]string{"route", "code"},
	)

	// HTTPDurationSeconds measures HTTP API latency
	HTTPDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smellsense_http_duration_seconds",
			Help:    "Duration of HTTP API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// RateLimitRequestsTotal counts requests handled by the rate limiter
	RateLimitRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smellsense_rate_limit_requests_total",
			Help: "Total number of requests handled by rate limiter",
		},
		[]string{"transport", "status"}, // "allowed", "throttled"
	)
)

// =============================================================================
// Health Metrics
// =============================================================================

var (
	// HealthCheckDurationSeconds measures component health check latency
	HealthCheckDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smellsense_health_check_duration_seconds",
			Help:    "Duration of health checks",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"component"},
	)

	// ComponentHealthStatus reports 1=healthy, 0.5=degraded, 0=unhealthy
	ComponentHealthStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smellsense_component_health_status",
			Help: "Current component health status (1=healthy, 0.5=degraded, 0=unhealthy)",
		},
		[]string{"component"},
	)

	// SignaturesLoaded reports the size of the signature store
	SignaturesLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "smellsense_signatures_loaded",
			Help: "Number of disease signatures in the reference store",
		},
	)
)
