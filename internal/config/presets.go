package config

import (
	"fmt"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// presets holds the named, versioned PipelineSpecs embedded in the
// engine, per spec.md §4.6. A document's "preset" field names one of
// these; MergeOverlay layers the document's own guardrails/settings on
// top before validation runs.
var presets = map[string]core.PipelineSpec{
	"basic":            basicPreset(),
	"customer_service": customerServicePreset(),
	"medical":          medicalPreset(),
	"financial":        financialPreset(),
	"educational":      educationalPreset(),
}

// Preset returns a deep copy of the named preset spec, or an error if
// no preset is registered under that name.
func Preset(name string) (core.PipelineSpec, error) {
	p, ok := presets[name]
	if !ok {
		return core.PipelineSpec{}, fmt.Errorf("config: unknown preset %q", name)
	}
	return p.Clone(), nil
}

// PresetNames lists every registered preset, for the rules-listing
// HTTP endpoint (SPEC_FULL.md §6).
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}

func spec(name string, guardrails ...core.GuardrailSpec) core.PipelineSpec {
	return core.PipelineSpec{
		Name:       name,
		Version:    "1.0.0",
		Guardrails: guardrails,
		Deadline:   2000,
	}
}

func guardrail(name, typ string, onError core.OnError, cfg map[string]any, stages ...core.Stage) core.GuardrailSpec {
	return core.GuardrailSpec{
		Name:    name,
		Type:    typ,
		Enabled: true,
		Stages:  stages,
		OnError: onError,
		Config:  cfg,
	}
}

func basicPreset() core.PipelineSpec {
	return spec("basic",
		guardrail("pii", "pii", core.OnErrorWarn, nil, core.StageInput, core.StageOutput),
		guardrail("toxicity", "toxicity", core.OnErrorWarn, nil, core.StageInput, core.StageOutput),
		guardrail("length", "length", core.OnErrorAllow, map[string]any{"max_chars": 8000}, core.StageInput),
	)
}

func customerServicePreset() core.PipelineSpec {
	return spec("customer_service",
		guardrail("pii", "pii", core.OnErrorBlock, nil, core.StageInput, core.StageOutput),
		guardrail("toxicity", "toxicity", core.OnErrorBlock, nil, core.StageInput),
		guardrail("codegen", "codegen", core.OnErrorWarn, nil, core.StageOutput),
		guardrail("off_topic", "topic", core.OnErrorWarn,
			map[string]any{"deny_topics": []string{"competitor_pricing", "internal_tooling"}},
			core.StageOutput),
		guardrail("length", "length", core.OnErrorAllow, map[string]any{"max_chars": 4000}, core.StageInput),
	)
}

func medicalPreset() core.PipelineSpec {
	return spec("medical",
		guardrail("pii", "pii", core.OnErrorBlock, nil, core.StageInput, core.StageOutput),
		guardrail("phi_keywords", "keyword", core.OnErrorBlock,
			map[string]any{"keywords": []string{"diagnosis:", "patient id", "medical record number"}},
			core.StageOutput),
		guardrail("toxicity", "toxicity", core.OnErrorBlock, nil, core.StageInput, core.StageOutput),
		guardrail("disclaimer_required", "compound", core.OnErrorBlock, map[string]any{
			"block_threshold": 60.0,
			"warn_threshold":  30.0,
			"checks": []map[string]any{
				{"type": "keyword", "points": 60.0, "config": map[string]any{"keywords": []string{"you have", "diagnosed with"}}},
				{"type": "length", "points": 40.0, "config": map[string]any{"min_chars": 1}},
			},
		}, core.StageOutput),
	)
}

func financialPreset() core.PipelineSpec {
	return spec("financial",
		guardrail("pii", "pii", core.OnErrorBlock, nil, core.StageInput, core.StageOutput),
		guardrail("account_numbers", "regex", core.OnErrorBlock,
			map[string]any{"deny": []string{`\b\d{9,18}\b`}},
			core.StageOutput),
		guardrail("advice_disclaimer", "keyword", core.OnErrorWarn,
			map[string]any{"keywords": []string{"guaranteed return", "risk-free investment"}},
			core.StageOutput),
		guardrail("toxicity", "toxicity", core.OnErrorWarn, nil, core.StageInput),
	)
}

func educationalPreset() core.PipelineSpec {
	return spec("educational",
		guardrail("toxicity", "toxicity", core.OnErrorBlock, nil, core.StageInput, core.StageOutput),
		guardrail("codegen_homework", "codegen", core.OnErrorWarn, nil, core.StageOutput),
		guardrail("url", "url", core.OnErrorWarn,
			map[string]any{"deny_domains": []string{"coursehero.com", "chegg.com"}},
			core.StageOutput),
		guardrail("pii", "pii", core.OnErrorWarn, nil, core.StageInput, core.StageOutput),
	)
}
