// Package pipeline is the ordered-dispatch engine: given a
// core.PipelineSpec and a built set of guardrails, it runs a piece of
// content through them in order, short-circuiting on a block, applying
// each guardrail's on_error policy on failure, and enforcing the
// pipeline-level deadline. Grounded on the teacher's
// internal/core/services/classification.go staged fallback chain,
// generalized from "try LLM, fall back to rules" to "run every
// configured guardrail, honoring each one's own error policy."
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// AuditRecorder receives a completed Result for every Engine.Check call.
// internal/audit implements this; Engine works with any recorder so the
// two packages don't import each other.
type AuditRecorder interface {
	Record(ctx context.Context, stage core.Stage, content core.Content, result Result)
}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, core.Stage, core.Content, Result) {}

// Engine runs content through one side (input or output) of a
// PipelineSpec.
type Engine struct {
	spec       core.PipelineSpec
	input      []namedGuardrail
	output     []namedGuardrail
	logger     *slog.Logger
	audit      AuditRecorder
}

// New builds an Engine from a spec and its already-constructed
// guardrails (internal/guardrails.Registry.BuildAll). guardrails and
// spec.Guardrails must be the same length and in the same order.
func New(spec core.PipelineSpec, guardrails []core.Guardrail, logger *slog.Logger, audit AuditRecorder) (*Engine, error) {
	if len(guardrails) != len(spec.Guardrails) {
		return nil, fmt.Errorf("pipeline %q: %d guardrails built for %d specs", spec.Name, len(guardrails), len(spec.Guardrails))
	}
	if logger == nil {
		logger = slog.Default()
	}
	if audit == nil {
		audit = noopRecorder{}
	}

	e := &Engine{spec: spec, logger: logger, audit: audit}
	for i, g := range guardrails {
		ng := namedGuardrail{guardrail: g, spec: spec.Guardrails[i]}
		if spec.Guardrails[i].AppliesTo(core.StageInput) {
			e.input = append(e.input, ng)
		}
		if spec.Guardrails[i].AppliesTo(core.StageOutput) {
			e.output = append(e.output, ng)
		}
	}
	e.input = order(e.input, spec.ReorderByPerformance)
	e.output = order(e.output, spec.ReorderByPerformance)
	return e, nil
}

// Spec returns the PipelineSpec this engine was built from.
func (e *Engine) Spec() core.PipelineSpec { return e.spec }

// Check runs content through the guardrail set for content.Stage and
// returns the aggregated verdict. It applies the pipeline-level
// deadline (spec.Deadline, in milliseconds) on top of ctx: whichever
// expires first wins.
func (e *Engine) Check(ctx context.Context, content core.Content, gctx core.GuardrailContext) Result {
	chain := e.input
	if content.Stage == core.StageOutput {
		chain = e.output
	}

	if e.spec.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.spec.Deadline)*time.Millisecond)
		defer cancel()
	}
	if gctx.Deadline.IsZero() {
		if deadline, ok := ctx.Deadline(); ok {
			gctx.Deadline = deadline
		}
	}

	results := make([]core.GuardrailResult, 0, len(chain))
	var incomplete []string

	for i, ng := range chain {
		select {
		case <-ctx.Done():
			for _, remaining := range chain[i:] {
				incomplete = append(incomplete, remaining.guardrail.Name())
			}
			result := e.aggregateCanceled(results, incomplete, content, gctx)
			e.audit.Record(ctx, content.Stage, content, result)
			return result
		default:
		}

		result, err := e.runOne(ctx, ng, content, gctx)
		if err != nil {
			result = e.applyOnError(ng, err)
		} else {
			result = e.applyAction(ng, result)
		}
		results = append(results, result)

		if result.Blocked && result.Action == core.ActionBlock {
			break
		}
	}

	agg := aggregate(results)
	e.audit.Record(ctx, content.Stage, content, agg)
	return agg
}

// runOne invokes a single guardrail within its own timeout (the smaller
// of its declared Timeout and the time left before gctx.Deadline), per
// spec.md §4.4.
func (e *Engine) runOne(ctx context.Context, ng namedGuardrail, content core.Content, gctx core.GuardrailContext) (core.GuardrailResult, error) {
	callCtx := ctx
	var cancel context.CancelFunc
	if ng.spec.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, ng.spec.Timeout)
		defer cancel()
	}

	result, err := ng.guardrail.Analyze(callCtx, content, gctx)
	if err != nil {
		return core.GuardrailResult{}, err
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return core.GuardrailResult{}, fmt.Errorf("guardrail %q: %w", ng.guardrail.Name(), context.DeadlineExceeded)
	}
	return result, nil
}

// applyAction stamps a successful detector result with its configured
// action (spec.md §3/§4.2), overriding whatever the detector's own
// judgement would otherwise imply. An unset action defaults to block,
// matching the fail-closed default in spec.md §7. action=allow makes
// the guardrail advisory only: it can never contribute to an aggregate
// block, so Blocked is forced false regardless of the detector's own
// verdict.
func (e *Engine) applyAction(ng namedGuardrail, result core.GuardrailResult) core.GuardrailResult {
	action := ng.spec.Action
	if action == "" {
		action = core.ActionBlock
	}
	result.Action = action
	if action == core.ActionAllow {
		result.Blocked = false
	}
	return result
}

// applyOnError turns a guardrail failure into a GuardrailResult per its
// configured on_error policy (spec.md §4.2).
func (e *Engine) applyOnError(ng namedGuardrail, err error) core.GuardrailResult {
	e.logger.Warn("guardrail failed", "guardrail", ng.guardrail.Name(), "error", err)

	base := core.GuardrailResult{
		GuardrailName: ng.guardrail.Name(),
		GuardrailType: ng.guardrail.Type(),
		Reason:        "detector_error",
		Details:       map[string]any{"error": err.Error()},
	}

	switch ng.spec.OnError {
	case core.OnErrorBlock:
		base.Blocked = true
		base.Action = core.ActionBlock
		base.Confidence = 1
		base.RiskLevel = core.RiskHigh
	case core.OnErrorWarn:
		base.Blocked = true
		base.Action = core.ActionWarn
		base.RiskLevel = core.RiskMedium
	case core.OnErrorSkip:
		base.Action = core.ActionAllow
		base.RiskLevel = core.RiskNone
		base.Reason = ""
	default: // core.OnErrorAllow
		base.Action = core.ActionAllow
		base.RiskLevel = core.RiskNone
	}
	return base
}

// aggregateCanceled builds the terminal CANCELED result from spec.md
// §4.2's state machine: the pipeline-level deadline elapsed with
// guardrails still outstanding, so the whole call blocks with reason
// "deadline" regardless of what ran before it.
func (e *Engine) aggregateCanceled(results []core.GuardrailResult, incomplete []string, _ core.Content, _ core.GuardrailContext) Result {
	agg := aggregate(results)
	agg.Canceled = true
	agg.Blocked = true
	agg.Confidence = 1
	agg.Reasons = append(agg.Reasons, "deadline")
	agg.Results = append(agg.Results, core.GuardrailResult{
		GuardrailName: "pipeline",
		GuardrailType: "deadline",
		Blocked:       true,
		Action:        core.ActionBlock,
		Confidence:    1,
		RiskLevel:     core.RiskHigh,
		Reason:        (&core.DeadlineError{Incomplete: incomplete}).Error(),
	})
	return agg
}
