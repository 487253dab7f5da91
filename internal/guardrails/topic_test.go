package guardrails

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

func TestTopicGuardrail_BlocksDeniedTopic(t *testing.T) {
	g, err := newTopicGuardrail(newSpec("topic", map[string]any{"deny_topics": []string{"politics"}}))
	require.NoError(t, err)

	content := core.Content{Metadata: core.ContentMetadata{Tags: map[string]string{"category": "politics"}}}
	result, err := g.Analyze(context.Background(), content, core.GuardrailContext{})
	require.NoError(t, err)
	assert.True(t, result.Blocked)
}

func TestTopicGuardrail_BlocksTopicNotOnAllowList(t *testing.T) {
	g, err := newTopicGuardrail(newSpec("topic", map[string]any{"allow_topics": []string{"billing"}}))
	require.NoError(t, err)

	content := core.Content{Metadata: core.ContentMetadata{Tags: map[string]string{"category": "legal"}}}
	result, err := g.Analyze(context.Background(), content, core.GuardrailContext{})
	require.NoError(t, err)
	assert.True(t, result.Blocked)
}

func TestTopicGuardrail_AllowsListedTopic(t *testing.T) {
	g, err := newTopicGuardrail(newSpec("topic", map[string]any{"allow_topics": []string{"billing"}}))
	require.NoError(t, err)

	content := core.Content{Metadata: core.ContentMetadata{Tags: map[string]string{"category": "billing"}}}
	result, err := g.Analyze(context.Background(), content, core.GuardrailContext{})
	require.NoError(t, err)
	assert.False(t, result.Blocked)
}

func TestTopicGuardrail_NoTagsAllowsByDefault(t *testing.T) {
	g, err := newTopicGuardrail(newSpec("topic", map[string]any{"deny_topics": []string{"politics"}}))
	require.NoError(t, err)

	result, err := g.Analyze(context.Background(), core.Content{}, core.GuardrailContext{})
	require.NoError(t, err)
	assert.False(t, result.Blocked)
}
