// Package health is the engine's Prometheus instrumentation and
// point-in-time health snapshot: per-detector request/block/warning/error
// counters, latency histograms, audit-buffer depth, uptime, and the
// declared-vs-observed performance-class drift signal spec.md §4.7
// names explicitly. Grounded on the shape of teacher's
// pkg/metrics/{registry,technical}.go (a namespaced, lazily-built
// aggregator struct) rather than on their content, since the teacher's
// business/infra categories (alert processing, database, webhook) have
// no analog here.
package health

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// Registry is the central Prometheus instrumentation point for one
// running engine instance.
type Registry struct {
	startedAt time.Time

	RequestsTotal *prometheus.CounterVec
	BlocksTotal   *prometheus.CounterVec
	WarningsTotal *prometheus.CounterVec
	ErrorsTotal   *prometheus.CounterVec
	Latency       *prometheus.HistogramVec

	PerformanceDrift *prometheus.GaugeVec
}

// NewRegistry builds and registers the engine's metrics under the
// "guardrail_engine" namespace. reg is the Prometheus registerer to
// register against; nil means prometheus.DefaultRegisterer (what
// promhttp.Handler's default /metrics route serves). Tests that build
// more than one Registry in the same process must pass a fresh
// prometheus.NewRegistry() each time, since the default registerer
// panics on a second registration of the same metric name.
func NewRegistry(reg prometheus.Registerer) *Registry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	const namespace = "guardrail_engine"
	return &Registry{
		startedAt: time.Now(),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "detector", Name: "requests_total",
			Help: "Guardrail Analyze calls, by guardrail and stage.",
		}, []string{"guardrail", "stage"}),
		BlocksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "detector", Name: "blocks_total",
			Help: "Guardrail calls that returned a block verdict.",
		}, []string{"guardrail", "stage"}),
		WarningsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "detector", Name: "warnings_total",
			Help: "Guardrail calls that returned a warn verdict.",
		}, []string{"guardrail", "stage"}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "detector", Name: "errors_total",
			Help: "Guardrail calls that failed and fell through to on_error policy.",
		}, []string{"guardrail", "stage"}),
		Latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "detector", Name: "latency_seconds",
			Help:    "Guardrail Analyze call latency.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"guardrail", "stage"}),
		PerformanceDrift: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "detector", Name: "performance_class_drift",
			Help: "Observed latency bucket (0=instant..3=slow) minus declared PerformanceClass; nonzero means drift.",
		}, []string{"guardrail"}),
	}
}

// Observe records one guardrail result against the registry. Called by
// pkg/guardrail's runCheck for every guardrail result a check produced.
func (r *Registry) Observe(stage core.Stage, result core.GuardrailResult) {
	labels := prometheus.Labels{"guardrail": result.GuardrailName, "stage": string(stage)}
	r.RequestsTotal.With(labels).Inc()
	r.Latency.With(labels).Observe(result.Latency.Seconds())

	switch {
	case result.Reason == "detector_error":
		r.ErrorsTotal.With(labels).Inc()
	case result.Blocked && result.Action == core.ActionBlock:
		r.BlocksTotal.With(labels).Inc()
	case result.Action == core.ActionWarn:
		r.WarningsTotal.With(labels).Inc()
	}
}

// ObserveDrift records the gap between a guardrail's declared
// PerformanceClass and the class its observed latency actually falls
// into, per spec.md §4.7's "declared vs observed performance class"
// signal.
func (r *Registry) ObserveDrift(guardrailName string, declared core.PerformanceClass, observed time.Duration) {
	actual := classifyLatency(observed)
	r.PerformanceDrift.With(prometheus.Labels{"guardrail": guardrailName}).Set(float64(actual - declared))
}

func classifyLatency(d time.Duration) core.PerformanceClass {
	switch {
	case d < 10*time.Millisecond:
		return core.PerformanceInstant
	case d < 100*time.Millisecond:
		return core.PerformanceFast
	case d < time.Second:
		return core.PerformanceModerate
	default:
		return core.PerformanceSlow
	}
}

// Uptime reports how long this Registry (and, by extension, the engine
// instance it's attached to) has been running.
func (r *Registry) Uptime() time.Duration {
	return time.Since(r.startedAt)
}
