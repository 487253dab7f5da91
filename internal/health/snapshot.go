package health

import (
	"time"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// DetectorStatus is one guardrail's entry in a HealthSnapshot.
type DetectorStatus struct {
	Name               string               `json:"name"`
	Type               string               `json:"type"`
	DeclaredClass      core.PerformanceClass `json:"declared_performance_class"`
	DeclaredClassLabel string               `json:"declared_performance_class_label"`
	CircuitState       string               `json:"circuit_state,omitempty"`
	Healthy            bool                 `json:"healthy"`
	LastError          string               `json:"last_error,omitempty"`
}

// AuditStatus summarizes the audit subsystem's backpressure state.
type AuditStatus struct {
	Depth         int    `json:"depth"`
	DroppedEvents uint64 `json:"dropped_events"`
}

// HealthSnapshot is the point-in-time payload Pipeline.health() (SPEC_FULL.md
// §6) returns: per-detector status, audit backpressure, and overall
// uptime. It is deliberately a plain data type with no dependency on
// internal/pipeline, internal/audit, or internal/resilience concrete
// types, so any caller (pkg/guardrail, cmd/server) can build one from
// whatever subsystems it happens to be holding.
type HealthSnapshot struct {
	Healthy   bool             `json:"healthy"`
	Uptime    time.Duration    `json:"uptime"`
	Detectors []DetectorStatus `json:"detectors"`
	Audit     AuditStatus      `json:"audit"`
}

// Snapshotter builds a HealthSnapshot from the live Registry plus
// whatever per-detector health probes and audit stats the caller
// supplies. DetectorProbe mirrors the ad hoc Health(ctx) interface
// internal/config's runtime validator already type-asserts against, so
// the same probe can be reused here without a new guardrail-level
// contract.
type Snapshotter struct {
	registry *Registry
}

// NewSnapshotter binds a Snapshotter to the registry whose Uptime feeds
// every snapshot it builds.
func NewSnapshotter(registry *Registry) *Snapshotter {
	return &Snapshotter{registry: registry}
}

// DetectorProbe is one guardrail's reachability check, name, declared
// class, and circuit state, as gathered by the caller (pkg/guardrail
// has direct access to the built guardrails and their breakers; this
// package does not reach into them on its own).
type DetectorProbe struct {
	Name          string
	Type          string
	DeclaredClass core.PerformanceClass
	CircuitState  string
	Err           error
}

// Snapshot assembles a HealthSnapshot. The pipeline is considered
// unhealthy overall if any detector probe failed; a nonzero dropped
// audit event count does not by itself flip Healthy to false, since
// drops are an expected overload-shedding behavior, not a failure.
func (s *Snapshotter) Snapshot(probes []DetectorProbe, audit AuditStatus) HealthSnapshot {
	snap := HealthSnapshot{
		Healthy: true,
		Uptime:  s.registry.Uptime(),
		Audit:   audit,
	}
	for _, p := range probes {
		status := DetectorStatus{
			Name:                p.Name,
			Type:                p.Type,
			DeclaredClass:       p.DeclaredClass,
			DeclaredClassLabel:  p.DeclaredClass.String(),
			CircuitState:        p.CircuitState,
			Healthy:             p.Err == nil,
		}
		if p.Err != nil {
			status.LastError = p.Err.Error()
			snap.Healthy = false
		}
		snap.Detectors = append(snap.Detectors, status)
	}
	return snap
}
