package guardrails

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

func TestRateLimitGuardrail_BlocksAfterPerMinuteBudgetExhausted(t *testing.T) {
	g, err := newRateLimitGuardrail(newSpec("rate_limit", map[string]any{"per_minute": 2}))
	require.NoError(t, err)

	content := core.Content{Text: "hi", ConversationID: "convo-1"}
	for i := 0; i < 2; i++ {
		result, err := g.Analyze(context.Background(), content, core.GuardrailContext{})
		require.NoError(t, err)
		assert.False(t, result.Blocked)
	}

	result, err := g.Analyze(context.Background(), content, core.GuardrailContext{})
	require.NoError(t, err)
	assert.True(t, result.Blocked)
}

func TestRateLimitGuardrail_StatelessCheckNeverLimited(t *testing.T) {
	g, err := newRateLimitGuardrail(newSpec("rate_limit", map[string]any{"per_minute": 1}))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		result, err := g.Analyze(context.Background(), core.Content{Text: "hi"}, core.GuardrailContext{})
		require.NoError(t, err)
		assert.False(t, result.Blocked)
	}
}

func TestRateLimitGuardrail_TracksBudgetsIndependentlyPerConversation(t *testing.T) {
	g, err := newRateLimitGuardrail(newSpec("rate_limit", map[string]any{"per_minute": 1}))
	require.NoError(t, err)

	first, err := g.Analyze(context.Background(), core.Content{Text: "hi", ConversationID: "a"}, core.GuardrailContext{})
	require.NoError(t, err)
	assert.False(t, first.Blocked)

	second, err := g.Analyze(context.Background(), core.Content{Text: "hi", ConversationID: "b"}, core.GuardrailContext{})
	require.NoError(t, err)
	assert.False(t, second.Blocked, "a different conversation should have its own budget")
}
