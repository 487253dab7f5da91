package guardrails

import (
	"context"
	"regexp"
	"time"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// codegenPattern flags a piece of content as likely containing
// generated/executable code, which some pipelines want to warn on for
// an output stage that is supposed to be prose (a support chatbot that
// should never hand back a shell one-liner, for instance).
type codegenPattern struct {
	language string
	re       *regexp.Regexp
}

var codegenCatalog = []codegenPattern{
	{language: "shell", re: regexp.MustCompile("(?m)^\\s*(?:sudo\\s+)?(?:rm\\s+-rf|curl\\s+.*\\|\\s*sh|wget\\s+.*\\|\\s*bash)")},
	{language: "python", re: regexp.MustCompile(`(?m)^\s*(?:import os|import subprocess|exec\(|eval\()`)},
	{language: "sql", re: regexp.MustCompile(`(?i)\b(?:DROP\s+TABLE|DELETE\s+FROM|UNION\s+SELECT)\b`)},
	{language: "fenced_block", re: regexp.MustCompile("```[a-zA-Z]*\\n")},
}

type codegenGuardrail struct {
	spec core.GuardrailSpec
}

func newCodegenGuardrail(spec core.GuardrailSpec) (core.Guardrail, error) {
	return &codegenGuardrail{spec: spec}, nil
}

func (g *codegenGuardrail) Name() string                        { return g.spec.Name }
func (g *codegenGuardrail) Type() string                         { return "codegen" }
func (g *codegenGuardrail) PerformanceClass() core.PerformanceClass { return core.PerformanceInstant }

func (g *codegenGuardrail) Analyze(ctx context.Context, content core.Content, _ core.GuardrailContext) (core.GuardrailResult, error) {
	start := time.Now()
	th := threshold(g.spec, 0.5)

	var indicators []string
	for _, p := range codegenCatalog {
		if p.re.MatchString(content.Text) {
			indicators = append(indicators, p.language)
		}
	}

	result := allowResult(g.Name(), g.Type())
	result.Latency = time.Since(start)
	if len(indicators) == 0 {
		return result, nil
	}

	confidence := 0.4 + 0.15*float64(len(indicators))
	if confidence > 1 {
		confidence = 1
	}
	result.Confidence = confidence
	result.Indicators = dedup(indicators)
	result.Reason = "detected generated code"
	if confidence >= th {
		result.Blocked = true
		result.RiskLevel = core.RiskMedium
	} else {
		result.RiskLevel = core.RiskLow
	}
	return result, nil
}
