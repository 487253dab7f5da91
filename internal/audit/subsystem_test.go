package audit

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
	"github.com/vitaliisemenov/guardrail-engine/internal/pipeline"
)

func newTestSubsystem(t *testing.T, sink Sink, redact bool) *Subsystem {
	t.Helper()
	return New(Config{
		BufferSize: 16,
		Sink:       sink,
		RedactPII:  redact,
		Logger:     slog.Default(),
		Registerer: prometheus.NewRegistry(),
	})
}

func waitForDepth(t *testing.T, sub *Subsystem, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if sub.Depth() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for depth %d, last observed %d", want, sub.Depth())
}

func waitForEvents(t *testing.T, sink *MemorySink, want int) []core.AuditEvent {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		sink.mu.Lock()
		n := len(sink.Events)
		sink.mu.Unlock()
		if n >= want {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	return append([]core.AuditEvent(nil), sink.Events...)
}

func TestSubsystem_RecordEmitsUserPromptContentEvent(t *testing.T) {
	sink := NewMemorySink()
	sub := newTestSubsystem(t, sink, false)
	sub.Start(context.Background())
	defer sub.Stop(time.Second)

	sub.Record(context.Background(), core.StageInput, core.Content{Text: "hello", ConversationID: "c1"}, pipeline.Result{})

	events := waitForEvents(t, sink, 1)
	require.Len(t, events, 1)
	assert.Equal(t, core.EventUserPrompt, events[0].Type)
	assert.Equal(t, core.SchemaVersion, events[0].Schema)
	assert.Equal(t, "hello", events[0].Redacted.Content)
	assert.Equal(t, "c1", events[0].ConversationID)
}

func TestSubsystem_RecordUsesLLMResponseForOutputStage(t *testing.T) {
	sink := NewMemorySink()
	sub := newTestSubsystem(t, sink, false)
	sub.Start(context.Background())
	defer sub.Stop(time.Second)

	sub.Record(context.Background(), core.StageOutput, core.Content{Text: "hi back"}, pipeline.Result{})

	events := waitForEvents(t, sink, 1)
	require.Len(t, events, 1)
	assert.Equal(t, core.EventLLMResponse, events[0].Type)
}

func TestSubsystem_RecordEmitsOneGuardrailDecisionPerResult(t *testing.T) {
	sink := NewMemorySink()
	sub := newTestSubsystem(t, sink, false)
	sub.Start(context.Background())
	defer sub.Stop(time.Second)

	sub.Record(context.Background(), core.StageInput, core.Content{ConversationID: "c1"}, pipeline.Result{
		Blocked: true,
		Results: []core.GuardrailResult{
			{GuardrailName: "pii_check", Blocked: true, Action: core.ActionBlock, Reason: "ssn_detected", Confidence: 0.92, Indicators: []string{"ssn"}},
			{GuardrailName: "toxicity", Blocked: false, Action: core.ActionWarn, Confidence: 0.1},
		},
	})

	events := waitForEvents(t, sink, 3)
	require.Len(t, events, 3)
	assert.Equal(t, core.EventUserPrompt, events[0].Type)

	decision := events[1]
	assert.Equal(t, core.EventGuardrailDecision, decision.Type)
	assert.Equal(t, "pii_check", decision.FilterName)
	assert.Equal(t, "block", decision.Decision)
	assert.Equal(t, "ssn_detected", decision.Reason)
	assert.Equal(t, 0.92, decision.Confidence)
	assert.Equal(t, []string{"ssn"}, decision.Indicators)

	warn := events[2]
	assert.Equal(t, "toxicity", warn.FilterName)
	assert.Equal(t, "warn", warn.Decision)
}

func TestSubsystem_RecordRedactsTextWhenConfigured(t *testing.T) {
	sink := NewMemorySink()
	sub := newTestSubsystem(t, sink, true)
	sub.Start(context.Background())
	defer sub.Stop(time.Second)

	sub.Record(context.Background(), core.StageInput, core.Content{Text: "email jane@example.com now"}, pipeline.Result{})

	events := waitForEvents(t, sink, 1)
	require.Len(t, events, 1)
	assert.NotContains(t, events[0].Redacted.Content, "jane@example.com")
}

func TestSubsystem_RecordErrorCarriesMessage(t *testing.T) {
	sink := NewMemorySink()
	sub := newTestSubsystem(t, sink, false)
	sub.Start(context.Background())
	defer sub.Stop(time.Second)

	sub.RecordError(core.EventConfigChange, "prod-pipeline", errors.New("boom"))

	events := waitForEvents(t, sink, 1)
	require.Len(t, events, 1)
	assert.Equal(t, core.EventConfigChange, events[0].Type)
	assert.Equal(t, "prod-pipeline", events[0].PipelineName)
	assert.Equal(t, "boom", events[0].Error)
}

func TestSubsystem_EnqueueDropsOldestAtCapacity(t *testing.T) {
	sub := New(Config{
		BufferSize: 2,
		Sink:       NewMemorySink(),
		Registerer: prometheus.NewRegistry(),
	})

	sub.enqueue(core.AuditEvent{ID: "1"})
	sub.enqueue(core.AuditEvent{ID: "2"})
	sub.enqueue(core.AuditEvent{ID: "3"})

	assert.Equal(t, uint64(1), sub.DroppedEvents())
	assert.Equal(t, 2, sub.Depth())
	assert.Equal(t, "2", sub.queue[0].ID, "oldest entry must have been evicted")
}

func TestSubsystem_StartIsIdempotent(t *testing.T) {
	sub := newTestSubsystem(t, NewMemorySink(), false)
	sub.Start(context.Background())
	sub.Start(context.Background())
	defer sub.Stop(time.Second)

	assert.True(t, sub.running)
}

func TestSubsystem_StopDrainsBeforeReturning(t *testing.T) {
	sink := NewMemorySink()
	sub := newTestSubsystem(t, sink, false)
	sub.Start(context.Background())

	sub.Record(context.Background(), core.StageInput, core.Content{Text: "final"}, pipeline.Result{})
	sub.Stop(time.Second)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.Events, 1)
	assert.Equal(t, "final", sink.Events[0].Redacted.Content)
}

func TestSubsystem_StopOnNeverStartedIsNoop(t *testing.T) {
	sub := newTestSubsystem(t, NewMemorySink(), false)
	sub.Stop(time.Second)
	assert.False(t, sub.running)
}

type failingSink struct{ calls int }

func (f *failingSink) Write(context.Context, core.AuditEvent) error {
	f.calls++
	return errors.New("sink unavailable")
}

func TestSubsystem_WriteWithRetryGivesUpAndKeepsConsuming(t *testing.T) {
	sink := &failingSink{}
	sub := newTestSubsystem(t, sink, false)
	sub.Start(context.Background())
	defer sub.Stop(time.Second)

	sub.Record(context.Background(), core.StageInput, core.Content{Text: "x"}, pipeline.Result{})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && sink.calls < 5 {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 5, sink.calls, "writeWithRetry should exhaust all attempts on a permanently failing sink")
	waitForDepth(t, sub, 0)
}

func TestSubsystem_DepthAndDroppedEventsReflectState(t *testing.T) {
	sub := New(Config{BufferSize: 1, Sink: NewMemorySink(), Registerer: prometheus.NewRegistry()})
	assert.Equal(t, 0, sub.Depth())
	assert.Equal(t, uint64(0), sub.DroppedEvents())

	sub.enqueue(core.AuditEvent{ID: "1"})
	sub.enqueue(core.AuditEvent{ID: "2"})
	assert.Equal(t, 1, sub.Depth())
	assert.Equal(t, uint64(1), sub.DroppedEvents())
}
