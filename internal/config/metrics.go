package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ReloadMetrics instruments pkg/guardrail.Pipeline.Reload's atomic
// generation swap, grounded on the teacher's
// config_reload.go vector-per-outcome shape. Component/rollback labels
// from the teacher (routing, receivers, database, redis...) have no
// analog here — a pipeline reload is a single atomic Swap, not a
// multi-component apply — so only total/duration/last-success survive.
type ReloadMetrics struct {
	Total       *prometheus.CounterVec
	Duration    prometheus.Histogram
	LastSuccess prometheus.Gauge
}

// NewReloadMetrics registers the reload metrics under the
// "guardrail_engine" namespace. reg is the registerer to use; nil means
// prometheus.DefaultRegisterer. See health.NewRegistry's doc comment on
// why tests constructing more than one Pipeline must supply a fresh
// registry.
func NewReloadMetrics(reg prometheus.Registerer) *ReloadMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &ReloadMetrics{
		Total: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guardrail_engine", Subsystem: "config", Name: "reload_total",
			Help: "Pipeline spec reload attempts by outcome.",
		}, []string{"outcome"}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "guardrail_engine", Subsystem: "config", Name: "reload_duration_seconds",
			Help:    "Time to validate and swap in a new pipeline spec.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.2, 0.5, 1},
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "guardrail_engine", Subsystem: "config", Name: "reload_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful reload.",
		}),
	}
}
