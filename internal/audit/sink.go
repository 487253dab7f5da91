package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
	"gopkg.in/natefinch/lumberjack.v2"
)

// JSONLSink writes one JSON object per line to an io.Writer, rotated by
// lumberjack when backed by a file. Grounded on the teacher's
// pkg/logger.go lumberjack wiring, applied here to the audit stream
// instead of the application log.
type JSONLSink struct {
	w io.Writer
}

// NewJSONLSink wraps an already-configured io.Writer (typically a
// *lumberjack.Logger) as a Sink.
func NewJSONLSink(w io.Writer) *JSONLSink {
	return &JSONLSink{w: w}
}

// NewFileSink builds a JSONLSink backed by a rotating lumberjack file,
// matching the teacher's log-rotation defaults.
func NewFileSink(path string, maxSizeMB, maxBackups, maxAgeDays int, compress bool) *JSONLSink {
	return &JSONLSink{w: &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   compress,
	}}
}

func (s *JSONLSink) Write(_ context.Context, event core.AuditEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit sink: marshal event: %w", err)
	}
	data = append(data, '\n')
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("audit sink: write event: %w", err)
	}
	return nil
}

// MemorySink accumulates events in memory. Used by tests and by
// callers that want to inspect the audit trail in-process rather than
// through a file.
type MemorySink struct {
	mu     sync.Mutex
	Events []core.AuditEvent
}

// NewMemorySink returns a ready-to-use MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(_ context.Context, event core.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, event)
	return nil
}
