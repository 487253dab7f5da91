package core

import "time"

// GuardrailSpec is the declarative configuration for one guardrail
// instance inside a PipelineSpec. internal/config unmarshals these from
// YAML/JSON via mapstructure; internal/guardrails.Registry turns them
// into live Guardrail values.
type GuardrailSpec struct {
	Name       string         `mapstructure:"name" validate:"required"`
	Type       string         `mapstructure:"type" validate:"required"`
	Enabled    bool           `mapstructure:"enabled"`
	Stages     []Stage        `mapstructure:"stages" validate:"required,min=1"`
	Action     Action         `mapstructure:"action" validate:"omitempty,oneof=block warn allow"`
	Threshold  float64        `mapstructure:"threshold" validate:"min=0,max=1"`
	OnError    OnError        `mapstructure:"on_error" validate:"required,oneof=block warn allow skip"`
	Timeout    time.Duration  `mapstructure:"timeout"`
	Config     map[string]any `mapstructure:"config"`
}

// AppliesTo reports whether this guardrail runs for the given stage.
func (g GuardrailSpec) AppliesTo(stage Stage) bool {
	for _, s := range g.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// PipelineSpec is the top-level, versioned configuration document for a
// running pipeline: a name, the ordered guardrail list, and the knobs
// that don't belong to any single guardrail (deadline, reordering,
// audit wiring).
type PipelineSpec struct {
	Name                    string          `mapstructure:"name" validate:"required"`
	Version                 string          `mapstructure:"version"`
	Guardrails              []GuardrailSpec `mapstructure:"guardrails" validate:"dive"`
	Deadline                int             `mapstructure:"deadline_ms" validate:"min=0"`
	ReorderByPerformance    bool            `mapstructure:"reorder_by_performance_class"`
	RateLimitPerMinute      int             `mapstructure:"rate_limit_per_minute" validate:"min=0"`
	RateLimitPerHour        int             `mapstructure:"rate_limit_per_hour" validate:"min=0"`
}

// Clone returns a deep-enough copy of the spec for safe hand-off across
// the atomic hot-reload boundary in pkg/guardrail.Pipeline.
func (p PipelineSpec) Clone() PipelineSpec {
	out := p
	out.Guardrails = make([]GuardrailSpec, len(p.Guardrails))
	for i, g := range p.Guardrails {
		gc := g
		if g.Config != nil {
			gc.Config = make(map[string]any, len(g.Config))
			for k, v := range g.Config {
				gc.Config[k] = v
			}
		}
		if g.Stages != nil {
			gc.Stages = append([]Stage(nil), g.Stages...)
		}
		out.Guardrails[i] = gc
	}
	return out
}
