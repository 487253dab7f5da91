package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardrailSpec_AppliesTo_MatchesDeclaredStagesOnly(t *testing.T) {
	g := GuardrailSpec{Stages: []Stage{StageInput}}
	assert.True(t, g.AppliesTo(StageInput))
	assert.False(t, g.AppliesTo(StageOutput))
}

func TestGuardrailSpec_AppliesTo_EmptyStagesMatchesNothing(t *testing.T) {
	g := GuardrailSpec{}
	assert.False(t, g.AppliesTo(StageInput))
	assert.False(t, g.AppliesTo(StageOutput))
}

func TestPipelineSpec_Clone_DeepCopiesGuardrailConfigAndStages(t *testing.T) {
	original := PipelineSpec{
		Name: "p",
		Guardrails: []GuardrailSpec{
			{
				Name:   "pii",
				Stages: []Stage{StageInput},
				Config: map[string]any{"threshold": 0.5},
			},
		},
	}

	clone := original.Clone()
	clone.Guardrails[0].Config["threshold"] = 0.9
	clone.Guardrails[0].Stages[0] = StageOutput
	clone.Guardrails[0].Name = "renamed"

	require.Len(t, original.Guardrails, 1)
	assert.Equal(t, "pii", original.Guardrails[0].Name)
	assert.Equal(t, 0.5, original.Guardrails[0].Config["threshold"])
	assert.Equal(t, StageInput, original.Guardrails[0].Stages[0])
}

func TestPipelineSpec_Clone_AppendingToCloneGuardrailsDoesNotAffectOriginal(t *testing.T) {
	original := PipelineSpec{Guardrails: []GuardrailSpec{{Name: "a"}}}
	clone := original.Clone()
	clone.Guardrails = append(clone.Guardrails, GuardrailSpec{Name: "b"})

	assert.Len(t, original.Guardrails, 1)
	assert.Len(t, clone.Guardrails, 2)
}

func TestPipelineSpec_Clone_NilConfigStaysNil(t *testing.T) {
	original := PipelineSpec{Guardrails: []GuardrailSpec{{Name: "a"}}}
	clone := original.Clone()
	assert.Nil(t, clone.Guardrails[0].Config)
}
