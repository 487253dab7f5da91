package guardrail

import "github.com/vitaliisemenov/guardrail-engine/internal/core"

// OpenConversation starts a new conversation and returns its ID. Pass
// the ID to CheckInputForConversation/CheckOutputForConversation so a
// rate_limit guardrail (and any guardrail that inspects prior turns)
// can key off it.
func (p *Pipeline) OpenConversation() string {
	return p.convo.Open()
}

// Conversation resolves id to its core.Conversation, for passing into
// CheckInputForConversation/CheckOutputForConversation.
func (p *Pipeline) Conversation(id string) (*core.Conversation, bool) {
	return p.convo.Get(id)
}

// AppendTurn records one turn (the content and the guardrail results it
// produced) against conversation id.
func (p *Pipeline) AppendTurn(id string, stage core.Stage, text string, results []core.GuardrailResult) core.Turn {
	return p.convo.AppendTurn(id, stage, text, results)
}

// ConversationHistory returns the turns recorded so far for id.
func (p *Pipeline) ConversationHistory(id string) ([]core.Turn, error) {
	return p.convo.History(id)
}

// ResetConversation discards id's recorded turns without closing it.
func (p *Pipeline) ResetConversation(id string) error {
	return p.convo.Reset(id)
}

// CloseConversation removes id from the store.
func (p *Pipeline) CloseConversation(id string) {
	p.convo.Close(id)
}

// SerializeConversation snapshots id for external persistence.
func (p *Pipeline) SerializeConversation(id string) ([]byte, error) {
	return p.convo.Serialize(id)
}

// RestoreConversation rehydrates a conversation previously produced by
// SerializeConversation and reinstalls it under its original ID.
func (p *Pipeline) RestoreConversation(data []byte) (*core.Conversation, error) {
	return p.convo.Restore(data)
}
