package guardrails

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// keywordConfig configures keywordGuardrail. Keywords can be declared
// inline or loaded from a file (one keyword per line), matching the
// spec's "inline or file-backed" requirement.
type keywordConfig struct {
	Keywords      []string `mapstructure:"keywords"`
	File          string   `mapstructure:"file"`
	CaseSensitive bool     `mapstructure:"case_sensitive"`
}

type keywordGuardrail struct {
	spec     core.GuardrailSpec
	keywords []string
	caseSens bool
}

func newKeywordGuardrail(spec core.GuardrailSpec) (core.Guardrail, error) {
	var cfg keywordConfig
	if err := decodeConfig(spec.Config, &cfg); err != nil {
		return nil, fmt.Errorf("keyword guardrail %q: %w", spec.Name, err)
	}

	keywords := append([]string(nil), cfg.Keywords...)
	if cfg.File != "" {
		fromFile, err := loadKeywordFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("keyword guardrail %q: %w", spec.Name, err)
		}
		keywords = append(keywords, fromFile...)
	}
	if !cfg.CaseSensitive {
		for i, k := range keywords {
			keywords[i] = strings.ToLower(k)
		}
	}

	return &keywordGuardrail{spec: spec, keywords: keywords, caseSens: cfg.CaseSensitive}, nil
}

func loadKeywordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening keyword file: %w", err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading keyword file: %w", err)
	}
	return out, nil
}

func (g *keywordGuardrail) Name() string                        { return g.spec.Name }
func (g *keywordGuardrail) Type() string                         { return "keyword" }
func (g *keywordGuardrail) PerformanceClass() core.PerformanceClass { return core.PerformanceInstant }

func (g *keywordGuardrail) Analyze(ctx context.Context, content core.Content, _ core.GuardrailContext) (core.GuardrailResult, error) {
	start := time.Now()
	haystack := content.Text
	if !g.caseSens {
		haystack = strings.ToLower(haystack)
	}

	var hits []string
	for _, k := range g.keywords {
		if strings.Contains(haystack, k) {
			hits = append(hits, k)
		}
	}

	result := allowResult(g.Name(), g.Type())
	result.Latency = time.Since(start)
	if len(hits) == 0 {
		return result, nil
	}

	result.Blocked = true
	result.Confidence = 1
	result.RiskLevel = core.RiskMedium
	result.Reason = "matched a denied keyword"
	result.Indicators = hits
	return result, nil
}
