package config

import (
	"fmt"

	"dario.cat/mergo"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// MergeOverlay layers overlay onto base, overlay winning on any field
// it sets explicitly (spec.md §4.6: "Loader merges user overrides onto
// the preset"). Guardrails named in overlay replace a same-named
// guardrail from base rather than appending a duplicate; guardrails
// only present in overlay are appended.
func MergeOverlay(base, overlay core.PipelineSpec) (core.PipelineSpec, error) {
	merged := base.Clone()

	byName := make(map[string]int, len(merged.Guardrails))
	for i, g := range merged.Guardrails {
		byName[g.Name] = i
	}
	for _, g := range overlay.Guardrails {
		if idx, ok := byName[g.Name]; ok {
			merged.Guardrails[idx] = g
			continue
		}
		merged.Guardrails = append(merged.Guardrails, g)
		byName[g.Name] = len(merged.Guardrails) - 1
	}

	// Guardrails were already reconciled above; merge only the scalar
	// pipeline-level fields (deadline, rate limits, reorder flag, version).
	// mergo leaves merged.Guardrails alone since scalarOverlay.Guardrails
	// is the slice's zero value.
	scalarOverlay := overlay
	scalarOverlay.Guardrails = nil
	if err := mergo.Merge(&merged, scalarOverlay, mergo.WithOverride); err != nil {
		return core.PipelineSpec{}, fmt.Errorf("config: merge overlay onto preset %q: %w", base.Name, err)
	}
	return merged, nil
}
