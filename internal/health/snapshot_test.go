package health

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

func TestSnapshotter_Snapshot_HealthyWithNoFailingProbes(t *testing.T) {
	s := NewSnapshotter(NewRegistry(prometheus.NewRegistry()))

	snap := s.Snapshot([]DetectorProbe{
		{Name: "length", Type: "length", DeclaredClass: core.PerformanceInstant},
		{Name: "pii", Type: "pii", DeclaredClass: core.PerformanceFast},
	}, AuditStatus{Depth: 0, DroppedEvents: 0})

	assert.True(t, snap.Healthy)
	require.Len(t, snap.Detectors, 2)
	assert.True(t, snap.Detectors[0].Healthy)
	assert.Equal(t, "instant", snap.Detectors[0].DeclaredClassLabel)
}

func TestSnapshotter_Snapshot_UnhealthyWhenAnyProbeFails(t *testing.T) {
	s := NewSnapshotter(NewRegistry(prometheus.NewRegistry()))

	snap := s.Snapshot([]DetectorProbe{
		{Name: "length", DeclaredClass: core.PerformanceInstant},
		{Name: "model_assisted", DeclaredClass: core.PerformanceSlow, Err: errors.New("upstream down")},
	}, AuditStatus{})

	assert.False(t, snap.Healthy)
	require.Len(t, snap.Detectors, 2)
	assert.True(t, snap.Detectors[0].Healthy)
	assert.False(t, snap.Detectors[1].Healthy)
	assert.Equal(t, "upstream down", snap.Detectors[1].LastError)
}

func TestSnapshotter_Snapshot_DroppedAuditEventsDoNotFlipHealthy(t *testing.T) {
	s := NewSnapshotter(NewRegistry(prometheus.NewRegistry()))

	snap := s.Snapshot(nil, AuditStatus{Depth: 10, DroppedEvents: 500})

	assert.True(t, snap.Healthy)
	assert.Equal(t, uint64(500), snap.Audit.DroppedEvents)
}

func TestSnapshotter_Snapshot_CarriesCircuitState(t *testing.T) {
	s := NewSnapshotter(NewRegistry(prometheus.NewRegistry()))

	snap := s.Snapshot([]DetectorProbe{
		{Name: "ma", Type: "model_assisted", DeclaredClass: core.PerformanceSlow, CircuitState: "open"},
	}, AuditStatus{})

	require.Len(t, snap.Detectors, 1)
	assert.Equal(t, "open", snap.Detectors[0].CircuitState)
}

func TestSnapshotter_Snapshot_UptimeIsNonNegative(t *testing.T) {
	s := NewSnapshotter(NewRegistry(prometheus.NewRegistry()))
	snap := s.Snapshot(nil, AuditStatus{})
	assert.GreaterOrEqual(t, snap.Uptime.Nanoseconds(), int64(0))
}
