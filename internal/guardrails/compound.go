package guardrails

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// compoundCheck is one sub-guardrail folded into a compound score. Points
// is how much of the [0,100] certainty budget this check contributes when
// it fires; it is independent of the sub-guardrail's own Confidence,
// since a compound guardrail cares about how many distinct signals fired,
// not how confident any single one of them was.
type compoundCheck struct {
	Type   string                 `mapstructure:"type"`
	Config map[string]interface{} `mapstructure:"config"`
	Points float64                `mapstructure:"points"`
}

// compoundConfig configures compoundGuardrail: an additive, saturating
// certainty score built from several sub-checks, each adding its own
// Points when it fires (resolves the "compound/weighted guardrails" open
// question by additive scoring against a threshold).
type compoundConfig struct {
	Checks         []compoundCheck `mapstructure:"checks"`
	WarnThreshold  float64         `mapstructure:"warn_threshold"`
	BlockThreshold float64         `mapstructure:"block_threshold"`
}

type compoundSubcheck struct {
	guardrail core.Guardrail
	points    float64
}

type compoundGuardrail struct {
	spec           core.GuardrailSpec
	subchecks      []compoundSubcheck
	warnThreshold  float64
	blockThreshold float64
}

// newCompoundGuardrail returns a Factory bound to registry r, so each
// sub-check can be built through the same set of built-in types (and any
// custom types the caller has registered) instead of duplicating
// construction logic.
func newCompoundGuardrail(r *Registry) Factory {
	return func(spec core.GuardrailSpec) (core.Guardrail, error) {
		var cfg compoundConfig
		if err := decodeConfig(spec.Config, &cfg); err != nil {
			return nil, fmt.Errorf("compound guardrail %q: %w", spec.Name, err)
		}
		if len(cfg.Checks) == 0 {
			return nil, fmt.Errorf("compound guardrail %q: no sub-checks configured", spec.Name)
		}

		g := &compoundGuardrail{
			spec:           spec,
			warnThreshold:  cfg.WarnThreshold,
			blockThreshold: cfg.BlockThreshold,
		}
		if g.blockThreshold == 0 {
			g.blockThreshold = 100
		}
		if g.warnThreshold == 0 {
			g.warnThreshold = g.blockThreshold / 2
		}

		for i, check := range cfg.Checks {
			subSpec := core.GuardrailSpec{
				Name:   fmt.Sprintf("%s/%s#%d", spec.Name, check.Type, i),
				Type:   check.Type,
				Stages: spec.Stages,
				Config: check.Config,
			}
			sub, err := r.Build(subSpec)
			if err != nil {
				return nil, fmt.Errorf("compound guardrail %q: sub-check %d: %w", spec.Name, i, err)
			}
			points := check.Points
			if points == 0 {
				points = 100 / float64(len(cfg.Checks))
			}
			g.subchecks = append(g.subchecks, compoundSubcheck{guardrail: sub, points: points})
		}
		return g, nil
	}
}

func (g *compoundGuardrail) Name() string { return g.spec.Name }
func (g *compoundGuardrail) Type() string { return "compound" }

func (g *compoundGuardrail) PerformanceClass() core.PerformanceClass {
	slowest := core.PerformanceInstant
	for _, sc := range g.subchecks {
		if sc.guardrail.PerformanceClass() > slowest {
			slowest = sc.guardrail.PerformanceClass()
		}
	}
	return slowest
}

func (g *compoundGuardrail) Analyze(ctx context.Context, content core.Content, gctx core.GuardrailContext) (core.GuardrailResult, error) {
	start := time.Now()
	score := 0.0
	var fired []string
	var reasons []string

	for _, sc := range g.subchecks {
		sub, err := sc.guardrail.Analyze(ctx, content, gctx)
		if err != nil {
			return core.GuardrailResult{}, fmt.Errorf("compound guardrail %q: sub-check %q: %w", g.spec.Name, sc.guardrail.Name(), err)
		}
		if sub.Blocked || sub.Confidence > 0 {
			score += sc.points
			fired = append(fired, sc.guardrail.Name())
			if sub.Reason != "" {
				reasons = append(reasons, sub.Reason)
			}
		}
	}
	if score > 100 {
		score = 100
	}

	result := allowResult(g.Name(), g.Type())
	result.Confidence = score / 100
	result.Latency = time.Since(start)
	result.Indicators = fired

	switch {
	case score >= g.blockThreshold:
		result.Blocked = true
		result.RiskLevel = core.RiskHigh
	case score >= g.warnThreshold:
		result.RiskLevel = core.RiskMedium
	default:
		return result, nil
	}
	result.Reason = strings.Join(dedup(reasons), "; ")
	return result, nil
}
