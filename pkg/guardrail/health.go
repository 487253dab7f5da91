package guardrail

import (
	"context"
	"time"

	"github.com/vitaliisemenov/guardrail-engine/internal/health"
)

// healthProbeTimeout bounds how long Health waits on any one
// model_assisted guardrail's reachability check.
const healthProbeTimeout = 3 * time.Second

// Health reports the current generation's per-detector status plus
// audit backpressure, per SPEC_FULL.md §6's Pipeline.health() operation.
func (p *Pipeline) Health(ctx context.Context) health.HealthSnapshot {
	gen := p.current()

	probes := make([]health.DetectorProbe, 0, len(gen.guardrails))
	for _, g := range gen.guardrails {
		probe := health.DetectorProbe{
			Name:          g.Name(),
			Type:          g.Type(),
			DeclaredClass: g.PerformanceClass(),
		}
		if prober, ok := g.(interface{ Health(context.Context) error }); ok {
			probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
			probe.Err = prober.Health(probeCtx)
			cancel()
		}
		probes = append(probes, probe)
	}

	var auditStatus health.AuditStatus
	if p.audit != nil {
		auditStatus = health.AuditStatus{
			Depth:         p.audit.Depth(),
			DroppedEvents: p.audit.DroppedEvents(),
		}
	}

	return p.snapshotter.Snapshot(probes, auditStatus)
}
