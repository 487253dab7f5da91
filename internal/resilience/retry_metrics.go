package resilience

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RetryMetrics instruments WithRetry/WithRetryFunc. One instance can be
// shared across every guardrail and provider call that retries; the
// operation label distinguishes them in Prometheus.
type RetryMetrics struct {
	AttemptsTotal      *prometheus.CounterVec
	DurationSeconds    *prometheus.HistogramVec
	BackoffSeconds     *prometheus.HistogramVec
	FinalAttemptsTotal *prometheus.HistogramVec
}

// NewRetryMetrics registers a fresh RetryMetrics under
// guardrail_engine_resilience_retry_*.
func NewRetryMetrics() *RetryMetrics {
	const namespace, subsystem = "guardrail_engine", "resilience_retry"
	return &RetryMetrics{
		AttemptsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "attempts_total",
			Help: "Total retry attempts by operation, outcome, and error type",
		}, []string{"operation", "outcome", "error_type"}),
		DurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "duration_seconds",
			Help:    "Duration of a single retry attempt",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "outcome", "error_type"}),
		BackoffSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "backoff_seconds",
			Help:    "Backoff delay applied between retry attempts",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
		FinalAttemptsTotal: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "final_attempt_count",
			Help:    "Number of attempts taken before the operation settled",
			Buckets: []float64{1, 2, 3, 4, 5, 8},
		}, []string{"operation", "outcome"}),
	}
}

func (m *RetryMetrics) RecordAttempt(operation, outcome, errorType string, durationSeconds float64) {
	m.AttemptsTotal.WithLabelValues(operation, outcome, errorType).Inc()
	m.DurationSeconds.WithLabelValues(operation, outcome, errorType).Observe(durationSeconds)
}

func (m *RetryMetrics) RecordBackoff(operation string, delaySeconds float64) {
	m.BackoffSeconds.WithLabelValues(operation).Observe(delaySeconds)
}

func (m *RetryMetrics) RecordFinalAttempt(operation, outcome string, attempts int) {
	m.FinalAttemptsTotal.WithLabelValues(operation, outcome).Observe(float64(attempts))
}
