package guardrails

import (
	"fmt"

	"github.com/vitaliisemenov/guardrail-engine/internal/convo"
	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// rateLimitConfig configures the rate_limit guardrail type.
type rateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
	PerHour   int `mapstructure:"per_hour"`
}

// newRateLimitGuardrail lets a PipelineSpec's top-level
// RateLimitPerMinute/RateLimitPerHour knobs be expressed as an ordinary
// guardrail entry, per spec.md §4.3's "exposed as a guardrail for
// uniformity" requirement: callers (pkg/guardrail) synthesize a
// core.GuardrailSpec{Type: "rate_limit", Config: {...}} from those
// fields rather than threading a separate mechanism through the engine.
func newRateLimitGuardrail(spec core.GuardrailSpec) (core.Guardrail, error) {
	var cfg rateLimitConfig
	if err := decodeConfig(spec.Config, &cfg); err != nil {
		return nil, fmt.Errorf("rate_limit guardrail %q: %w", spec.Name, err)
	}
	return convo.NewRateLimiter(spec.Name, cfg.PerMinute, cfg.PerHour), nil
}
