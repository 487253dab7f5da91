package guardrails

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

var urlPattern = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"']+`)

// urlConfig configures urlGuardrail with domain allow/deny lists.
// A bare domain like "example.com" also matches its subdomains.
type urlConfig struct {
	AllowDomains []string `mapstructure:"allow_domains"`
	DenyDomains  []string `mapstructure:"deny_domains"`
}

type urlGuardrail struct {
	spec  core.GuardrailSpec
	allow []string
	deny  []string
}

func newURLGuardrail(spec core.GuardrailSpec) (core.Guardrail, error) {
	var cfg urlConfig
	if err := decodeConfig(spec.Config, &cfg); err != nil {
		return nil, fmt.Errorf("url guardrail %q: %w", spec.Name, err)
	}
	return &urlGuardrail{
		spec:  spec,
		allow: normalizeDomains(cfg.AllowDomains),
		deny:  normalizeDomains(cfg.DenyDomains),
	}, nil
}

func normalizeDomains(domains []string) []string {
	out := make([]string, len(domains))
	for i, d := range domains {
		out[i] = strings.ToLower(strings.TrimPrefix(d, "."))
	}
	return out
}

func domainMatches(host string, list []string) bool {
	host = strings.ToLower(host)
	for _, d := range list {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func extractHost(raw string) string {
	candidate := raw
	if !strings.Contains(candidate, "://") {
		candidate = "http://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func (g *urlGuardrail) Name() string                        { return g.spec.Name }
func (g *urlGuardrail) Type() string                         { return "url" }
func (g *urlGuardrail) PerformanceClass() core.PerformanceClass { return core.PerformanceInstant }

func (g *urlGuardrail) Analyze(ctx context.Context, content core.Content, _ core.GuardrailContext) (core.GuardrailResult, error) {
	start := time.Now()
	result := allowResult(g.Name(), g.Type())

	matches := urlPattern.FindAllString(content.Text, -1)
	result.Latency = time.Since(start)
	if len(matches) == 0 {
		return result, nil
	}

	var denied []string
	var unlisted []string
	for _, m := range matches {
		host := extractHost(m)
		if host == "" {
			continue
		}
		if domainMatches(host, g.deny) {
			denied = append(denied, host)
			continue
		}
		if len(g.allow) > 0 && !domainMatches(host, g.allow) {
			unlisted = append(unlisted, host)
		}
	}

	switch {
	case len(denied) > 0:
		result.Blocked = true
		result.Confidence = 1
		result.RiskLevel = core.RiskHigh
		result.Reason = "content links to a denied domain"
		result.Indicators = dedup(denied)
	case len(unlisted) > 0:
		result.Blocked = true
		result.Confidence = 1
		result.RiskLevel = core.RiskMedium
		result.Reason = "content links to a domain not on the allow list"
		result.Indicators = dedup(unlisted)
	}
	return result, nil
}
