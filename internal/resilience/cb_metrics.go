package resilience

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CircuitBreakerMetrics is the Prometheus instrumentation for a
// CircuitBreaker. Callers construct one per protected dependency (e.g.
// one per model-assisted guardrail) via NewCircuitBreakerMetrics, which
// namespaces the series by subsystem so two breakers never collide.
type CircuitBreakerMetrics struct {
	State            prometheus.Gauge
	Failures         prometheus.Counter
	Successes        prometheus.Counter
	StateChanges     *prometheus.CounterVec
	RequestsBlocked  prometheus.Counter
	HalfOpenRequests prometheus.Counter
	SlowCalls        prometheus.Counter
	CallDuration     *prometheus.HistogramVec
}

// NewCircuitBreakerMetrics registers a fresh set of circuit breaker
// metrics under "guardrail_engine_<subsystem>". subsystem should be
// unique per protected dependency, e.g. "provider_openai".
func NewCircuitBreakerMetrics(subsystem string) *CircuitBreakerMetrics {
	const namespace = "guardrail_engine"
	return &CircuitBreakerMetrics{
		State: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "circuit_state",
			Help: "Current circuit breaker state (0=closed, 1=open, 2=half_open)",
		}),
		Failures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "circuit_failures_total",
			Help: "Total failed calls observed by the circuit breaker",
		}),
		Successes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "circuit_successes_total",
			Help: "Total successful calls observed by the circuit breaker",
		}),
		StateChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "circuit_state_changes_total",
			Help: "Total circuit breaker state transitions",
		}, []string{"from", "to"}),
		RequestsBlocked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "circuit_requests_blocked_total",
			Help: "Total calls rejected while the circuit was open",
		}),
		HalfOpenRequests: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "circuit_half_open_requests_total",
			Help: "Total test calls allowed through in half-open state",
		}),
		SlowCalls: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "circuit_slow_calls_total",
			Help: "Total calls exceeding the slow-call threshold",
		}),
		CallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "circuit_call_duration_seconds",
			Help:    "Duration of calls made through the circuit breaker",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 3.0, 5.0, 10.0, 30.0},
		}, []string{"result"}),
	}
}

func (m *CircuitBreakerMetrics) RecordStateChange(from, to CircuitState) {
	if m.StateChanges != nil {
		m.StateChanges.WithLabelValues(from.String(), to.String()).Inc()
	}
	if m.State != nil {
		m.State.Set(float64(to))
	}
}
