package guardrails

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// topicConfig configures topicGuardrail against labels already present
// on the content (Content.Metadata.Tags), as attached by an upstream
// classifier or by the caller. This guardrail itself does no topic
// classification; it enforces a policy over labels someone else produced.
type topicConfig struct {
	AllowTopics []string `mapstructure:"allow_topics"`
	DenyTopics  []string `mapstructure:"deny_topics"`
}

type topicGuardrail struct {
	spec  core.GuardrailSpec
	allow map[string]bool
	deny  map[string]bool
}

func newTopicGuardrail(spec core.GuardrailSpec) (core.Guardrail, error) {
	var cfg topicConfig
	if err := decodeConfig(spec.Config, &cfg); err != nil {
		return nil, fmt.Errorf("topic guardrail %q: %w", spec.Name, err)
	}
	return &topicGuardrail{
		spec:  spec,
		allow: toLowerSet(cfg.AllowTopics),
		deny:  toLowerSet(cfg.DenyTopics),
	}, nil
}

func toLowerSet(vals []string) map[string]bool {
	set := make(map[string]bool, len(vals))
	for _, v := range vals {
		set[strings.ToLower(v)] = true
	}
	return set
}

func (g *topicGuardrail) Name() string                        { return g.spec.Name }
func (g *topicGuardrail) Type() string                         { return "topic" }
func (g *topicGuardrail) PerformanceClass() core.PerformanceClass { return core.PerformanceInstant }

func (g *topicGuardrail) Analyze(ctx context.Context, content core.Content, _ core.GuardrailContext) (core.GuardrailResult, error) {
	start := time.Now()
	result := allowResult(g.Name(), g.Type())
	result.Latency = time.Since(start)

	var denied []string
	var unlisted []string
	for _, tag := range content.Metadata.Tags {
		lower := strings.ToLower(tag)
		if g.deny[lower] {
			denied = append(denied, tag)
			continue
		}
		if len(g.allow) > 0 && !g.allow[lower] {
			unlisted = append(unlisted, tag)
		}
	}

	switch {
	case len(denied) > 0:
		result.Blocked = true
		result.Confidence = 1
		result.RiskLevel = core.RiskMedium
		result.Reason = "content carries a denied topic"
		result.Indicators = dedup(denied)
	case len(unlisted) > 0:
		result.Blocked = true
		result.Confidence = 1
		result.RiskLevel = core.RiskLow
		result.Reason = "content carries a topic not on the allow list"
		result.Indicators = dedup(unlisted)
	}
	return result, nil
}
