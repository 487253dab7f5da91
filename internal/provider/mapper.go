package provider

import "github.com/vitaliisemenov/guardrail-engine/internal/core"

// responseToVerdict converts a provider's wire response into the
// provider-agnostic Verdict model_assisted.go consumes.
func responseToVerdict(resp classifyResponse) Verdict {
	return Verdict{
		Flagged:    resp.Flagged,
		Confidence: resp.Confidence,
		RiskLevel:  parseRiskLevel(resp.RiskLevel),
		Categories: resp.Categories,
		Reasoning:  resp.Reasoning,
	}
}

func parseRiskLevel(s string) core.RiskLevel {
	switch s {
	case "low":
		return core.RiskLow
	case "medium":
		return core.RiskMedium
	case "high":
		return core.RiskHigh
	case "critical":
		return core.RiskCritical
	default:
		return core.RiskNone
	}
}
