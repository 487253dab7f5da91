package guardrails

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

func TestURLGuardrail_BlocksDeniedDomain(t *testing.T) {
	g, err := newURLGuardrail(newSpec("url", map[string]any{"deny_domains": []string{"evil.com"}}))
	require.NoError(t, err)

	result, err := g.Analyze(context.Background(), core.Content{Text: "click http://evil.com/path"}, core.GuardrailContext{})
	require.NoError(t, err)
	assert.True(t, result.Blocked)
	assert.Equal(t, core.RiskHigh, result.RiskLevel)
}

func TestURLGuardrail_DenyMatchesSubdomain(t *testing.T) {
	g, err := newURLGuardrail(newSpec("url", map[string]any{"deny_domains": []string{"evil.com"}}))
	require.NoError(t, err)

	result, err := g.Analyze(context.Background(), core.Content{Text: "see https://mail.evil.com"}, core.GuardrailContext{})
	require.NoError(t, err)
	assert.True(t, result.Blocked)
}

func TestURLGuardrail_BlocksUnlistedWhenAllowListSet(t *testing.T) {
	g, err := newURLGuardrail(newSpec("url", map[string]any{"allow_domains": []string{"example.com"}}))
	require.NoError(t, err)

	result, err := g.Analyze(context.Background(), core.Content{Text: "visit https://other.com"}, core.GuardrailContext{})
	require.NoError(t, err)
	assert.True(t, result.Blocked)
	assert.Equal(t, core.RiskMedium, result.RiskLevel)
}

func TestURLGuardrail_AllowsListedDomain(t *testing.T) {
	g, err := newURLGuardrail(newSpec("url", map[string]any{"allow_domains": []string{"example.com"}}))
	require.NoError(t, err)

	result, err := g.Analyze(context.Background(), core.Content{Text: "visit https://example.com/docs"}, core.GuardrailContext{})
	require.NoError(t, err)
	assert.False(t, result.Blocked)
}

func TestURLGuardrail_NoURLsAllowsText(t *testing.T) {
	g, err := newURLGuardrail(newSpec("url", map[string]any{"deny_domains": []string{"evil.com"}}))
	require.NoError(t, err)

	result, err := g.Analyze(context.Background(), core.Content{Text: "no links in this sentence"}, core.GuardrailContext{})
	require.NoError(t, err)
	assert.False(t, result.Blocked)
}
