package convo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

func TestRateLimiter_NameAndType(t *testing.T) {
	rl := NewRateLimiter("my-limiter", 10, 100)
	assert.Equal(t, "my-limiter", rl.Name())
	assert.Equal(t, "rate_limit", rl.Type())
	assert.Equal(t, core.PerformanceInstant, rl.PerformanceClass())
}

func TestRateLimiter_BlocksAfterPerMinuteBurstExhausted(t *testing.T) {
	rl := NewRateLimiter("limiter", 3, 0)
	content := core.Content{ConversationID: "c1"}

	for i := 0; i < 3; i++ {
		result, err := rl.Analyze(context.Background(), content, core.GuardrailContext{})
		require.NoError(t, err)
		assert.False(t, result.Blocked)
	}
	result, err := rl.Analyze(context.Background(), content, core.GuardrailContext{})
	require.NoError(t, err)
	assert.True(t, result.Blocked)
}

func TestRateLimiter_ZeroLimitDisablesThatWindow(t *testing.T) {
	rl := NewRateLimiter("limiter", 0, 0)
	content := core.Content{ConversationID: "c1"}

	for i := 0; i < 20; i++ {
		result, err := rl.Analyze(context.Background(), content, core.GuardrailContext{})
		require.NoError(t, err)
		assert.False(t, result.Blocked)
	}
}

func TestRateLimiter_EmptyConversationIDNeverLimited(t *testing.T) {
	rl := NewRateLimiter("limiter", 1, 0)
	for i := 0; i < 10; i++ {
		result, err := rl.Analyze(context.Background(), core.Content{}, core.GuardrailContext{})
		require.NoError(t, err)
		assert.False(t, result.Blocked)
	}
}

func TestRateLimiter_CleanupDropsUntouchedBuckets(t *testing.T) {
	rl := NewRateLimiter("limiter", 5, 0)
	rl.bucketsFor("c1") // allocates a bucket still at full capacity
	assert.Len(t, rl.perConversation, 1)

	rl.Cleanup()
	assert.Empty(t, rl.perConversation, "a bucket still at full capacity is idle and should be dropped")
}

func TestRateLimiter_CleanupKeepsPartiallyDrainedBuckets(t *testing.T) {
	rl := NewRateLimiter("limiter", 5, 0)
	_, err := rl.Analyze(context.Background(), core.Content{ConversationID: "c1"}, core.GuardrailContext{})
	require.NoError(t, err)

	rl.Cleanup()
	assert.Len(t, rl.perConversation, 1, "a bucket with tokens still in flight must not be dropped")
}
