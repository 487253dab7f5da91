package guardrails

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// lengthConfig configures lengthGuardrail from a GuardrailSpec.Config.
type lengthConfig struct {
	MaxChars int `mapstructure:"max_chars"`
	MinChars int `mapstructure:"min_chars"`
}

type lengthGuardrail struct {
	spec core.GuardrailSpec
	cfg  lengthConfig
}

func newLengthGuardrail(spec core.GuardrailSpec) (core.Guardrail, error) {
	var cfg lengthConfig
	if err := decodeConfig(spec.Config, &cfg); err != nil {
		return nil, fmt.Errorf("length guardrail %q: %w", spec.Name, err)
	}
	return &lengthGuardrail{spec: spec, cfg: cfg}, nil
}

func (g *lengthGuardrail) Name() string                        { return g.spec.Name }
func (g *lengthGuardrail) Type() string                         { return "length" }
func (g *lengthGuardrail) PerformanceClass() core.PerformanceClass { return core.PerformanceInstant }

func (g *lengthGuardrail) Analyze(ctx context.Context, content core.Content, _ core.GuardrailContext) (core.GuardrailResult, error) {
	start := time.Now()
	n := utf8.RuneCountInString(content.Text)

	result := allowResult(g.Name(), g.Type())
	result.Latency = time.Since(start)

	switch {
	case g.cfg.MaxChars > 0 && n > g.cfg.MaxChars:
		result.Blocked = true
		result.Confidence = 1
		result.RiskLevel = core.RiskLow
		result.Reason = fmt.Sprintf("content length %d exceeds max_chars %d", n, g.cfg.MaxChars)
	case g.cfg.MinChars > 0 && n < g.cfg.MinChars:
		result.Blocked = true
		result.Confidence = 1
		result.RiskLevel = core.RiskLow
		result.Reason = fmt.Sprintf("content length %d below min_chars %d", n, g.cfg.MinChars)
	}
	return result, nil
}
