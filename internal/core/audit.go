package core

import "time"

// EventType classifies an AuditEvent for downstream filtering, per
// spec.md §3/§6.
type EventType string

const (
	EventUserPrompt        EventType = "user_prompt"
	EventLLMResponse       EventType = "llm_response"
	EventGuardrailDecision EventType = "guardrail_decision"
	EventConfigChange      EventType = "config_change"
	EventAuditEnabled      EventType = "audit_enabled"
)

// SchemaVersion is stamped onto every AuditEvent, per spec.md §6's
// "schema":"audit.v1".
const SchemaVersion = "audit.v1"

// Redacted carries the text of the content an event concerns. When
// internal/audit runs with RedactPII set, PII is replaced before
// construction (internal/audit.redact) and the original value never
// reaches an AuditEvent; with RedactPII off the text is stored as checked.
type Redacted struct {
	Content string `json:"content,omitempty"`
}

// AuditEvent is the record internal/audit writes for every pipeline
// decision, shaped to match spec.md §6's literal line-delimited JSON
// example. Events carry no signature or hash chain, so a sink's contents
// are not tamper-evident on their own.
type AuditEvent struct {
	Schema         string            `json:"schema"`
	Timestamp      time.Time         `json:"ts"`
	Type           EventType         `json:"event"`
	ConversationID string            `json:"conv,omitempty"`
	FilterName     string            `json:"filter,omitempty"`
	Decision       string            `json:"decision,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	Confidence     float64           `json:"confidence,omitempty"`
	Indicators     []string          `json:"indicators,omitempty"`
	Redacted       *Redacted         `json:"redacted,omitempty"`
	PipelineName   string            `json:"pipeline_name,omitempty"`
	Error          string            `json:"error,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`

	// ID is a local correlation key for the in-process queue; it is not
	// part of the wire schema.
	ID string `json:"-"`
}
