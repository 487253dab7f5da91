package guardrail

import (
	"context"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
	"github.com/vitaliisemenov/guardrail-engine/internal/pipeline"
)

// CheckInput runs text (a prompt on its way to the model) through the
// active pipeline's input-stage guardrails.
func (p *Pipeline) CheckInput(ctx context.Context, text string, metadata core.ContentMetadata) pipeline.Result {
	return p.runCheck(ctx, core.Content{Text: text, Stage: core.StageInput, Metadata: metadata}, nil)
}

// CheckOutput runs text (a completion on its way back to the caller)
// through the active pipeline's output-stage guardrails.
func (p *Pipeline) CheckOutput(ctx context.Context, text string, metadata core.ContentMetadata) pipeline.Result {
	return p.runCheck(ctx, core.Content{Text: text, Stage: core.StageOutput, Metadata: metadata}, nil)
}

// CheckInputForConversation is CheckInput scoped to an open conversation:
// the conversation ID travels with the content (so a rate_limit
// guardrail can key off it) and convo carries prior turns for any
// guardrail that inspects history.
func (p *Pipeline) CheckInputForConversation(ctx context.Context, conversationID, text string, metadata core.ContentMetadata, convo *core.Conversation) pipeline.Result {
	content := core.Content{Text: text, Stage: core.StageInput, ConversationID: conversationID, Metadata: metadata}
	return p.runCheck(ctx, content, convo)
}

// CheckOutputForConversation is the output-stage counterpart of
// CheckInputForConversation.
func (p *Pipeline) CheckOutputForConversation(ctx context.Context, conversationID, text string, metadata core.ContentMetadata, convo *core.Conversation) pipeline.Result {
	content := core.Content{Text: text, Stage: core.StageOutput, ConversationID: conversationID, Metadata: metadata}
	return p.runCheck(ctx, content, convo)
}

// runCheck dispatches through the current generation's engine and feeds
// every per-guardrail result into the health registry (request/block/
// warn/error counters, latency, and declared-vs-observed drift).
func (p *Pipeline) runCheck(ctx context.Context, content core.Content, convo *core.Conversation) pipeline.Result {
	gen := p.current()
	result := gen.engine.Check(ctx, content, core.GuardrailContext{Conversation: convo})

	declared := make(map[string]core.PerformanceClass, len(gen.guardrails))
	for _, g := range gen.guardrails {
		declared[g.Name()] = g.PerformanceClass()
	}
	for _, r := range result.Results {
		p.healthReg.Observe(content.Stage, r)
		if class, ok := declared[r.GuardrailName]; ok {
			p.healthReg.ObserveDrift(r.GuardrailName, class, r.Latency)
		}
	}
	return result
}
