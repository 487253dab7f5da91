// Package audit is the non-blocking audit trail described in spec.md
// §4.5: a bounded ring buffer fed wait-free by the pipeline, drained by
// a single background consumer that redacts PII and serializes events
// to a structured sink. Grounded on the teacher's worker-pool shape in
// internal/core/processing/async_processor.go (start/stop lifecycle,
// queue monitor, graceful shutdown with timeout) restructured from a
// bounded-reject queue into a bounded drop-oldest one, and on
// pkg/history/security/audit_logger.go's severity-to-log-level mapping.
package audit

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
	"github.com/vitaliisemenov/guardrail-engine/internal/pipeline"
)

// Sink is where a drained AuditEvent ultimately lands. sink.go's
// JSONLSink is the default; tests substitute an in-memory one.
type Sink interface {
	Write(ctx context.Context, event core.AuditEvent) error
}

// Config configures a Subsystem.
type Config struct {
	BufferSize int
	Sink       Sink
	RedactPII  bool
	Logger     *slog.Logger
	Metrics    *Metrics

	// Registerer is used to build the default Metrics when Metrics is
	// nil. Tests that construct more than one Subsystem in the same
	// process should pass a fresh prometheus.NewRegistry() here.
	Registerer prometheus.Registerer
}

// Subsystem is the running audit pipeline: a fixed-capacity ring buffer
// plus one consumer goroutine.
type Subsystem struct {
	mu       sync.Mutex
	queue    []core.AuditEvent
	capacity int
	dropped  uint64
	lost     uint64

	signal chan struct{}
	stop   chan struct{}
	done   chan struct{}

	sink      Sink
	redactPII bool
	logger    *slog.Logger
	metrics   *Metrics

	runMu   sync.Mutex
	running bool
}

// New builds a Subsystem. It is not started until Start is called.
func New(cfg Config) *Subsystem {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 4096
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(cfg.Registerer)
	}
	return &Subsystem{
		capacity:  cfg.BufferSize,
		queue:     make([]core.AuditEvent, 0, cfg.BufferSize),
		signal:    make(chan struct{}, 1),
		sink:      cfg.Sink,
		redactPII: cfg.RedactPII,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
}

// Start launches the background consumer. It is safe to call once;
// subsequent calls before Stop are no-ops.
func (s *Subsystem) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	if s.lost > 0 {
		s.logger.Warn("audit subsystem starting with residue from prior shutdown", "lost_events", s.lost)
	}

	go s.consume(ctx)
}

// Stop flushes the buffer within the given timeout, then halts the
// consumer. Any events still queued after the timeout are counted as
// "lost_events" and logged on the next Start, per spec.md §4.5.
func (s *Subsystem) Stop(timeout time.Duration) {
	s.runMu.Lock()
	if !s.running {
		s.runMu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.runMu.Unlock()

	select {
	case <-s.done:
	case <-time.After(timeout):
		s.mu.Lock()
		s.lost = uint64(len(s.queue))
		s.mu.Unlock()
		s.logger.Warn("audit subsystem stop timed out", "residual_events", s.lost)
	}
}

// Record implements pipeline.AuditRecorder: per spec.md §6, every
// check produces exactly one content event (user_prompt for the input
// stage, llm_response for output) followed by one guardrail_decision
// event per detector that ran. Enqueue is wait-free; Record never
// blocks the caller on sink I/O.
func (s *Subsystem) Record(ctx context.Context, stage core.Stage, content core.Content, result pipeline.Result) {
	now := time.Now().UTC()

	text := content.Text
	var metadata map[string]string
	if s.redactPII {
		var hashes []string
		text, hashes = redact(text)
		if len(hashes) > 0 {
			metadata = map[string]string{"redaction_hashes": strings.Join(hashes, ",")}
		}
	}

	contentEvent := core.EventUserPrompt
	if stage == core.StageOutput {
		contentEvent = core.EventLLMResponse
	}

	s.enqueue(core.AuditEvent{
		ID:             uuid.NewString(),
		Schema:         core.SchemaVersion,
		Type:           contentEvent,
		Timestamp:      now,
		ConversationID: content.ConversationID,
		Redacted:       &core.Redacted{Content: text},
		Metadata:       metadata,
	})

	for _, r := range result.Results {
		rText := r.Reason
		s.enqueue(core.AuditEvent{
			ID:             uuid.NewString(),
			Schema:         core.SchemaVersion,
			Type:           core.EventGuardrailDecision,
			Timestamp:      now,
			ConversationID: content.ConversationID,
			FilterName:     r.GuardrailName,
			Decision:       decisionFor(r),
			Reason:         rText,
			Confidence:     r.Confidence,
			Indicators:     r.Indicators,
			Redacted:       &core.Redacted{Content: text},
			Metadata:       metadata,
		})
	}
}

// decisionFor renders a detector's action/blocked verdict as the
// "block"/"warn"/"allow" string spec.md §6's wire example uses.
func decisionFor(r core.GuardrailResult) string {
	switch {
	case r.Blocked && r.Action == core.ActionWarn:
		return string(core.ActionWarn)
	case r.Blocked:
		return string(core.ActionBlock)
	case r.Action != "":
		return string(r.Action)
	default:
		return string(core.ActionAllow)
	}
}

// RecordError lets callers outside the pipeline (config reload, health
// checks) append an audit event without going through Record's
// pipeline.Result shape.
func (s *Subsystem) RecordError(eventType core.EventType, pipelineName string, err error) {
	s.enqueue(core.AuditEvent{
		ID:           uuid.NewString(),
		Schema:       core.SchemaVersion,
		Type:         eventType,
		Timestamp:    time.Now().UTC(),
		PipelineName: pipelineName,
		Error:        err.Error(),
	})
}

// enqueue is wait-free up to capacity; at capacity it drops the oldest
// queued event and increments the dropped-event counter, per spec.md
// §4.5's explicit policy (never reject, never block the caller).
func (s *Subsystem) enqueue(event core.AuditEvent) {
	s.mu.Lock()
	if len(s.queue) >= s.capacity {
		s.queue = s.queue[1:]
		s.dropped++
		s.metrics.DroppedTotal.Inc()
	}
	s.queue = append(s.queue, event)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// DroppedEvents returns the number of events dropped to date because
// the buffer was at capacity. Exposed to internal/health.
func (s *Subsystem) DroppedEvents() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Depth returns the current number of events waiting to be drained.
// Exposed to internal/health.
func (s *Subsystem) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Subsystem) consume(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		s.drain(ctx)
		select {
		case <-ctx.Done():
			s.drain(context.Background())
			return
		case <-s.stop:
			s.drain(context.Background())
			return
		case <-s.signal:
		case <-ticker.C:
		}
	}
}

func (s *Subsystem) drain(ctx context.Context) {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		event := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.writeWithRetry(ctx, event)
		s.metrics.Depth.Set(float64(s.Depth()))
	}
}

// writeWithRetry never propagates a sink failure back to the pipeline
// (spec.md §4.5); it retries with a short backoff and gives up loudly
// via the logger rather than blocking the consumer indefinitely.
func (s *Subsystem) writeWithRetry(ctx context.Context, event core.AuditEvent) {
	delay := 50 * time.Millisecond
	for attempt := 0; attempt < 5; attempt++ {
		if err := s.sink.Write(ctx, event); err == nil {
			return
		} else if attempt == 4 {
			s.logger.Error("audit sink write failed permanently", "event_id", event.ID, "error", err)
			return
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
		delay *= 2
	}
}
