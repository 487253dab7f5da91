package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

func TestOrder_PreservesDeclarationOrderByDefault(t *testing.T) {
	in := []namedGuardrail{
		{guardrail: &fakeGuardrail{name: "slow", class: core.PerformanceSlow}},
		{guardrail: &fakeGuardrail{name: "instant", class: core.PerformanceInstant}},
	}
	out := order(in, false)
	assert.Equal(t, "slow", out[0].guardrail.Name())
	assert.Equal(t, "instant", out[1].guardrail.Name())
}

func TestOrder_SortsByPerformanceClassWhenEnabled(t *testing.T) {
	in := []namedGuardrail{
		{guardrail: &fakeGuardrail{name: "slow", class: core.PerformanceSlow}},
		{guardrail: &fakeGuardrail{name: "instant", class: core.PerformanceInstant}},
		{guardrail: &fakeGuardrail{name: "fast", class: core.PerformanceFast}},
	}
	out := order(in, true)
	assert.Equal(t, []string{"instant", "fast", "slow"}, []string{out[0].guardrail.Name(), out[1].guardrail.Name(), out[2].guardrail.Name()})
}

func TestOrder_StableAmongEqualClasses(t *testing.T) {
	in := []namedGuardrail{
		{guardrail: &fakeGuardrail{name: "first", class: core.PerformanceFast}},
		{guardrail: &fakeGuardrail{name: "second", class: core.PerformanceFast}},
	}
	out := order(in, true)
	assert.Equal(t, "first", out[0].guardrail.Name())
	assert.Equal(t, "second", out[1].guardrail.Name())
}

func TestOrder_DoesNotMutateInput(t *testing.T) {
	in := []namedGuardrail{
		{guardrail: &fakeGuardrail{name: "slow", class: core.PerformanceSlow}},
		{guardrail: &fakeGuardrail{name: "instant", class: core.PerformanceInstant}},
	}
	_ = order(in, true)
	assert.Equal(t, "slow", in[0].guardrail.Name(), "order must not reorder the caller's slice in place")
}
