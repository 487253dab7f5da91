package guardrails

import (
	"context"
	"regexp"
	"time"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// piiPattern is one entry in the built-in PII catalog: a compiled
// regex plus the confidence the catalog assigns a raw match before any
// validation step (e.g. Luhn for credit cards) runs.
type piiPattern struct {
	name       string
	re         *regexp.Regexp
	confidence float64
	validate   func(match string) bool
}

var piiCatalog = []piiPattern{
	{name: "ssn", re: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), confidence: 0.9},
	{name: "credit_card", re: regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`), confidence: 0.6, validate: luhnValid},
	{name: "email", re: regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`), confidence: 0.95},
	{name: "phone", re: regexp.MustCompile(`\b(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`), confidence: 0.7},
	{name: "ipv4", re: regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|1?\d?\d)\b`), confidence: 0.5},
	{name: "iban", re: regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{10,30}\b`), confidence: 0.75},
}

// luhnValid reports whether digits (ignoring separators) pass the Luhn
// checksum, filtering plausible-but-fake credit card number matches.
func luhnValid(match string) bool {
	var digits []int
	for _, r := range match {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		}
	}
	if len(digits) < 13 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// piiGuardrail flags personally identifiable information using the
// built-in regex catalog above.
type piiGuardrail struct {
	spec core.GuardrailSpec
}

func newPIIGuardrail(spec core.GuardrailSpec) (core.Guardrail, error) {
	return &piiGuardrail{spec: spec}, nil
}

func (g *piiGuardrail) Name() string                        { return g.spec.Name }
func (g *piiGuardrail) Type() string                         { return "pii" }
func (g *piiGuardrail) PerformanceClass() core.PerformanceClass { return core.PerformanceFast }

func (g *piiGuardrail) Analyze(ctx context.Context, content core.Content, _ core.GuardrailContext) (core.GuardrailResult, error) {
	start := time.Now()
	th := threshold(g.spec, 0.8)

	var indicators []string
	best := 0.0
	for _, p := range piiCatalog {
		matches := p.re.FindAllString(content.Text, -1)
		for _, m := range matches {
			if p.validate != nil && !p.validate(m) {
				continue
			}
			indicators = append(indicators, p.name)
			if p.confidence > best {
				best = p.confidence
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
	result.Reason = "detected potential PII"
	if best >= th {
		result.Blocked = true
		result.RiskLevel = core.RiskHigh
	} else {
		result.RiskLevel = core.RiskLow
	}
	return result, nil
}

// Redact replaces every PII match in text with a fixed token, reusing
// the same catalog piiGuardrail matches against (spec.md §4.5: audit
// redaction uses "the same pattern set as the Pattern-PII detector").
// It returns the redacted text plus the raw matches that were removed,
// so the caller (internal/audit) can hash each one for correlation
// without this package needing to know about hashing.
func Redact(text string) (redacted string, removed []string) {
	redacted = text
	for _, p := range piiCatalog {
		matches := p.re.FindAllString(redacted, -1)
		for _, m := range matches {
			if p.validate != nil && !p.validate(m) {
				continue
			}
			removed = append(removed, m)
		}
		redacted = p.re.ReplaceAllStringFunc(redacted, func(m string) string {
			if p.validate != nil && !p.validate(m) {
				return m
			}
			return "[REDACTED:" + p.name + "]"
		})
	}
	return redacted, removed
}

func dedup(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
