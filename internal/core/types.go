// Package core holds the domain types shared by every other package in
// the guardrail engine: the content a guardrail inspects, the verdict it
// returns, the declarative spec that configures a pipeline, and the
// conversation/audit records that accumulate around a running pipeline.
//
// Nothing in this package depends on any other internal package. It is
// the vocabulary the rest of the engine is written in.
package core

import (
	"context"
	"time"
)

// Stage identifies which side of an LLM call a piece of content came
// from.
type Stage string

const (
	StageInput  Stage = "input"
	StageOutput Stage = "output"
)

// Action is the verdict a single guardrail reaches about a piece of
// content.
type Action string

const (
	ActionAllow Action = "allow"
	ActionWarn  Action = "warn"
	ActionBlock Action = "block"
)

// OnError controls what a pipeline does when a guardrail itself fails
// to produce a verdict (panics, times out, the upstream it depends on
// errors).
type OnError string

const (
	OnErrorBlock OnError = "block"
	OnErrorWarn  OnError = "warn"
	OnErrorAllow OnError = "allow"
	OnErrorSkip  OnError = "skip"
)

// RiskLevel is a coarse severity label attached to a GuardrailResult.
// Order matters: it is used for health drift comparisons and for
// deciding which of several concurrent warnings to surface first.
type RiskLevel int

const (
	RiskNone RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
	RiskCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskNone:
		return "none"
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// PerformanceClass is the guardrail author's own declaration of how
// expensive the detector is. It drives opt-in pipeline reordering
// (internal/pipeline/ordering.go) and the declared-vs-observed drift
// gauge in internal/health.
type PerformanceClass int

const (
	PerformanceInstant PerformanceClass = iota
	PerformanceFast
	PerformanceModerate
	PerformanceSlow
)

func (p PerformanceClass) String() string {
	switch p {
	case PerformanceInstant:
		return "instant"
	case PerformanceFast:
		return "fast"
	case PerformanceModerate:
		return "moderate"
	case PerformanceSlow:
		return "slow"
	default:
		return "unknown"
	}
}

// ContentMetadata carries caller-supplied context about a piece of
// content that guardrails may use but never mutate: which model
// produced/will produce it, the caller's declared content type, and any
// opaque tags the application wants echoed back in the audit trail.
type ContentMetadata struct {
	Model       string            `json:"model,omitempty"`
	ContentType string            `json:"content_type,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// Content is the unit of work a pipeline inspects: a prompt on the way
// in, or a completion on the way out.
type Content struct {
	Text           string          `json:"text"`
	Stage          Stage           `json:"stage"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Metadata       ContentMetadata `json:"metadata,omitempty"`
}

// GuardrailResult is what a single guardrail returns from Analyze.
//
// Invariant: Blocked implies Confidence >= the guardrail's configured
// threshold and RiskLevel != RiskNone. Callers constructing results by
// hand (tests, mocks) must preserve this; internal/pipeline does not
// re-derive Blocked from Confidence, it trusts the guardrail.
type GuardrailResult struct {
	GuardrailName string         `json:"guardrail_name"`
	GuardrailType string         `json:"guardrail_type"`
	Blocked       bool           `json:"blocked"`
	Action        Action         `json:"action"`
	Confidence    float64        `json:"confidence"`
	RiskLevel     RiskLevel      `json:"risk_level"`
	Reason        string         `json:"reason,omitempty"`
	Indicators    []string       `json:"indicators,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
	Latency       time.Duration  `json:"latency"`
}

// Valid reports whether the result satisfies the Blocked invariant.
func (r GuardrailResult) Valid(threshold float64) bool {
	if r.Blocked && (r.Confidence < threshold || r.RiskLevel == RiskNone) {
		return false
	}
	return true
}

// GuardrailContext is read-only context a pipeline hands each guardrail
// alongside the Content being analyzed: the conversation it belongs to
// (nil for stateless checks) and the deadline the pipeline itself is
// operating under.
type GuardrailContext struct {
	Conversation *Conversation
	Deadline     time.Time
}

// Guardrail is the contract every detector in internal/guardrails
// implements. Analyze must respect ctx cancellation: a guardrail that
// ignores ctx can stall the whole pipeline past its deadline.
type Guardrail interface {
	Name() string
	Type() string
	Analyze(ctx context.Context, content Content, gctx GuardrailContext) (GuardrailResult, error)
	PerformanceClass() PerformanceClass
}
