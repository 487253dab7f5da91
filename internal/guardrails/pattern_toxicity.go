package guardrails

import (
	"context"
	"strings"
	"time"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// toxicityRule is a single lexical signal the built-in toxicity
// detector looks for. This mirrors the condition/category/confidence
// shape of a rule-based classifier: cheap, explainable, and easy to
// extend without touching code (a caller can always reach for
// "model_assisted" when lexical rules aren't enough).
type toxicityRule struct {
	category   string
	terms      []string
	confidence float64
}

var toxicityCatalog = []toxicityRule{
	{category: "harassment", terms: []string{"kill yourself", "you should die", "i hope you suffer"}, confidence: 0.95},
	{category: "hate_speech", terms: []string{"subhuman", "racial slur placeholder"}, confidence: 0.9},
	{category: "threat", terms: []string{"i will hurt you", "i will find you and"}, confidence: 0.9},
	{category: "profanity", terms: []string{"fuck you", "piece of shit"}, confidence: 0.5},
}

type toxicityGuardrail struct {
	spec core.GuardrailSpec
}

func newToxicityGuardrail(spec core.GuardrailSpec) (core.Guardrail, error) {
	return &toxicityGuardrail{spec: spec}, nil
}

func (g *toxicityGuardrail) Name() string                        { return g.spec.Name }
func (g *toxicityGuardrail) Type() string                         { return "toxicity" }
func (g *toxicityGuardrail) PerformanceClass() core.PerformanceClass { return core.PerformanceFast }

func (g *toxicityGuardrail) Analyze(ctx context.Context, content core.Content, _ core.GuardrailContext) (core.GuardrailResult, error) {
	start := time.Now()
	th := threshold(g.spec, 0.6)
	lower := strings.ToLower(content.Text)

	var indicators []string
	best := 0.0
	for _, rule := range toxicityCatalog {
		for _, term := range rule.terms {
			if strings.Contains(lower, term) {
				indicators = append(indicators, rule.category)
				if rule.confidence > best {
					best = rule.confidence
				}
			}
		}
	}

	result := allowResult(g.Name(), g.Type())
	result.Latency = time.Since(start)
	if len(indicators) == 0 {
		return result, nil
	}

	result.Confidence = best
	result.Indicators = dedup(indicators)
	result.Reason = "detected toxic language"
	if best >= th {
		result.Blocked = true
		result.RiskLevel = core.RiskHigh
	} else {
		result.RiskLevel = core.RiskMedium
	}
	return result, nil
}
