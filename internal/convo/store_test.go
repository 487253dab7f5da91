package convo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

func TestStore_OpenReturnsRetrievableConversation(t *testing.T) {
	s := New()
	id := s.Open()
	assert.NotEmpty(t, id)

	convo, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, id, convo.ID())
}

func TestStore_GetUnknownIDReturnsFalse(t *testing.T) {
	s := New()
	_, ok := s.Get("does-not-exist")
	assert.False(t, ok)
}

func TestStore_AppendTurnOpensImplicitly(t *testing.T) {
	s := New()
	turn := s.AppendTurn("client-chosen-id", core.StageInput, "hello", nil)
	assert.Equal(t, 0, turn.Sequence)

	history, err := s.History("client-chosen-id")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Text)
}

func TestStore_HistoryUnknownConversationErrors(t *testing.T) {
	s := New()
	_, err := s.History("nope")
	assert.Error(t, err)
}

func TestStore_ResetClearsTurnsButKeepsConversationOpen(t *testing.T) {
	s := New()
	id := s.Open()
	s.AppendTurn(id, core.StageInput, "one", nil)

	require.NoError(t, s.Reset(id))

	history, err := s.History(id)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStore_ResetUnknownConversationErrors(t *testing.T) {
	s := New()
	assert.Error(t, s.Reset("nope"))
}

func TestStore_CloseRemovesConversation(t *testing.T) {
	s := New()
	id := s.Open()
	s.Close(id)

	_, ok := s.Get(id)
	assert.False(t, ok)
}

func TestStore_SerializeRestoreRoundTrip(t *testing.T) {
	s := New()
	id := s.Open()
	s.AppendTurn(id, core.StageInput, "hello", nil)
	s.AppendTurn(id, core.StageOutput, "hi there", nil)

	data, err := s.Serialize(id)
	require.NoError(t, err)

	s2 := New()
	restored, err := s2.Restore(data)
	require.NoError(t, err)
	assert.Equal(t, id, restored.ID())
	assert.Equal(t, core.ConversationRestored, restored.Kind())

	history, err := s2.History(id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hi there", history[1].Text)
}

func TestStore_SerializeUnknownConversationErrors(t *testing.T) {
	s := New()
	_, err := s.Serialize("nope")
	assert.Error(t, err)
}

func TestStore_LenReflectsOpenConversations(t *testing.T) {
	s := New()
	assert.Equal(t, 0, s.Len())
	id := s.Open()
	assert.Equal(t, 1, s.Len())
	s.Close(id)
	assert.Equal(t, 0, s.Len())
}
