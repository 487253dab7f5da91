package pipeline

import (
	"context"
	"time"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// fakeGuardrail is a hand-built core.Guardrail for exercising Engine and
// ordering behavior without pulling in internal/guardrails.
type fakeGuardrail struct {
	name    string
	typ     string
	class   core.PerformanceClass
	result  core.GuardrailResult
	err     error
	delay   time.Duration
	calls   *int
}

func (f *fakeGuardrail) Name() string                        { return f.name }
func (f *fakeGuardrail) Type() string                         { return f.typ }
func (f *fakeGuardrail) PerformanceClass() core.PerformanceClass { return f.class }

func (f *fakeGuardrail) Analyze(ctx context.Context, content core.Content, gctx core.GuardrailContext) (core.GuardrailResult, error) {
	if f.calls != nil {
		*f.calls++
	}
	if f.delay > 0 {
		// Deliberately ignores ctx, mirroring the "guardrail that
		// ignores ctx can stall the whole pipeline" case engine_test.go
		// exercises for the pipeline-level deadline.
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return core.GuardrailResult{}, f.err
	}
	r := f.result
	r.GuardrailName = f.name
	r.GuardrailType = f.typ
	return r, nil
}

func blockResult() core.GuardrailResult {
	return core.GuardrailResult{Blocked: true, Action: core.ActionBlock, Confidence: 1, RiskLevel: core.RiskHigh}
}

func allowResult() core.GuardrailResult {
	return core.GuardrailResult{Action: core.ActionAllow}
}
