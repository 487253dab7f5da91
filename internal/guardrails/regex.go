package guardrails

import (
	"context"
	"fmt"
	"regexp"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// regexCache memoizes compiled patterns across guardrail instances, so
// two pipelines that both declare the same deny pattern don't pay the
// compile cost twice.
var regexCache = mustRegexLRU(256)

func mustRegexLRU(size int) *lru.Cache[string, *regexp.Regexp] {
	c, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		panic(err)
	}
	return c
}

func compileCached(pattern string, caseSensitive bool) (*regexp.Regexp, error) {
	key := pattern
	if !caseSensitive {
		key = "(?i)" + pattern
	}
	if re, ok := regexCache.Get(key); ok {
		return re, nil
	}
	re, err := regexp.Compile(key)
	if err != nil {
		return nil, err
	}
	regexCache.Add(key, re)
	return re, nil
}

// regexConfig configures regexGuardrail: a pattern is either an allow
// rule (content must match to pass) or a deny rule (a match blocks).
type regexConfig struct {
	Allow         []string `mapstructure:"allow"`
	Deny          []string `mapstructure:"deny"`
	CaseSensitive bool     `mapstructure:"case_sensitive"`
}

type regexGuardrail struct {
	spec  core.GuardrailSpec
	allow []*regexp.Regexp
	deny  []*regexp.Regexp
}

func newRegexGuardrail(spec core.GuardrailSpec) (core.Guardrail, error) {
	var cfg regexConfig
	if err := decodeConfig(spec.Config, &cfg); err != nil {
		return nil, fmt.Errorf("regex guardrail %q: %w", spec.Name, err)
	}
	g := &regexGuardrail{spec: spec}
	for _, p := range cfg.Allow {
		re, err := compileCached(p, cfg.CaseSensitive)
		if err != nil {
			return nil, fmt.Errorf("regex guardrail %q: allow pattern %q: %w", spec.Name, p, err)
		}
		g.allow = append(g.allow, re)
	}
	for _, p := range cfg.Deny {
		re, err := compileCached(p, cfg.CaseSensitive)
		if err != nil {
			return nil, fmt.Errorf("regex guardrail %q: deny pattern %q: %w", spec.Name, p, err)
		}
		g.deny = append(g.deny, re)
	}
	return g, nil
}

func (g *regexGuardrail) Name() string                        { return g.spec.Name }
func (g *regexGuardrail) Type() string                         { return "regex" }
func (g *regexGuardrail) PerformanceClass() core.PerformanceClass { return core.PerformanceInstant }

func (g *regexGuardrail) Analyze(ctx context.Context, content core.Content, _ core.GuardrailContext) (core.GuardrailResult, error) {
	start := time.Now()
	result := allowResult(g.Name(), g.Type())
	result.Latency = time.Since(start)

	for _, re := range g.deny {
		if re.MatchString(content.Text) {
			result.Blocked = true
			result.Confidence = 1
			result.RiskLevel = core.RiskMedium
			result.Reason = fmt.Sprintf("matched deny pattern %q", re.String())
			result.Indicators = []string{re.String()}
			return result, nil
		}
	}

	if len(g.allow) > 0 {
		matched := false
		for _, re := range g.allow {
			if re.MatchString(content.Text) {
				matched = true
				break
			}
		}
		if !matched {
			result.Blocked = true
			result.Confidence = 1
			result.RiskLevel = core.RiskLow
			result.Reason = "content matched no allow pattern"
		}
	}
	return result, nil
}
