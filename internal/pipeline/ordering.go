package pipeline

import (
	"sort"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// namedGuardrail pairs a built guardrail with the spec it was built
// from, since PerformanceClass and Stages live on different objects.
type namedGuardrail struct {
	guardrail core.Guardrail
	spec      core.GuardrailSpec
}

// order returns guardrails in the sequence the engine should run them
// in. Declaration order is authoritative by default (spec.md §4.2:
// "callers rely on fail-fast semantics they configured"); when the
// pipeline spec opts in via ReorderByPerformance, a stable sort by
// declared PerformanceClass runs instant detectors first without
// reordering two guardrails that share a class.
func order(guardrails []namedGuardrail, reorderByPerformance bool) []namedGuardrail {
	if !reorderByPerformance {
		return guardrails
	}
	out := make([]namedGuardrail, len(guardrails))
	copy(out, guardrails)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].guardrail.PerformanceClass() < out[j].guardrail.PerformanceClass()
	})
	return out
}
