package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the audit subsystem's internal state to
// internal/health, per spec.md §4.5/§4.7 ("audit-buffer depth" is one
// of the named health signals).
type Metrics struct {
	DroppedTotal prometheus.Counter
	Depth        prometheus.Gauge
}

// NewMetrics registers a fresh set of audit subsystem metrics against
// reg. A nil reg registers against prometheus.DefaultRegisterer, which
// is correct for a process running one Subsystem; tests that build more
// than one Subsystem in the same binary must each pass a fresh
// prometheus.NewRegistry() to avoid a duplicate-registration panic.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		DroppedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "guardrail_engine",
			Subsystem: "audit",
			Name:      "dropped_events_total",
			Help:      "Audit events dropped because the buffer was at capacity.",
		}),
		Depth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "guardrail_engine",
			Subsystem: "audit",
			Name:      "buffer_depth",
			Help:      "Number of audit events currently queued for the sink.",
		}),
	}
}
