package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

func TestResponseToVerdict_CopiesAllFields(t *testing.T) {
	v := responseToVerdict(classifyResponse{
		Flagged:    true,
		Confidence: 0.75,
		RiskLevel:  "critical",
		Categories: []string{"self_harm"},
		Reasoning:  "explicit threat",
	})
	assert.True(t, v.Flagged)
	assert.Equal(t, 0.75, v.Confidence)
	assert.Equal(t, core.RiskCritical, v.RiskLevel)
	assert.Equal(t, []string{"self_harm"}, v.Categories)
	assert.Equal(t, "explicit threat", v.Reasoning)
}

func TestParseRiskLevel_KnownStrings(t *testing.T) {
	cases := map[string]core.RiskLevel{
		"low":      core.RiskLow,
		"medium":   core.RiskMedium,
		"high":     core.RiskHigh,
		"critical": core.RiskCritical,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseRiskLevel(in), in)
	}
}

func TestParseRiskLevel_UnknownStringDefaultsToNone(t *testing.T) {
	assert.Equal(t, core.RiskNone, parseRiskLevel("not-a-level"))
	assert.Equal(t, core.RiskNone, parseRiskLevel(""))
}
