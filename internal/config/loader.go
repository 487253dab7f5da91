package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
	"github.com/vitaliisemenov/guardrail-engine/internal/guardrails"
)

// document is the raw shape a configuration file decodes to before
// preset resolution: either a full PipelineSpec inline, or a preset
// reference plus an overlay of fields to merge on top. Guardrails may
// be declared flat (the "guardrails" list, back-compat) or nested under
// "pipeline.input"/"pipeline.output" as spec.md §6 shows; both forms
// are accepted and folded together in documentToSpec.
type document struct {
	Preset     string      `mapstructure:"preset" yaml:"preset"`
	Name       string      `mapstructure:"name" yaml:"name"`
	Version    string      `mapstructure:"version" yaml:"version"`
	Guardrails []any       `mapstructure:"guardrails" yaml:"guardrails"`
	Pipeline   pipelineDoc `mapstructure:"pipeline" yaml:"pipeline"`
	Deadline   int         `mapstructure:"deadline_ms" yaml:"deadline_ms"`
	Reorder    bool        `mapstructure:"reorder_by_performance_class" yaml:"reorder_by_performance_class"`
	RateMinute int         `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	RateHour   int         `mapstructure:"rate_limit_per_hour" yaml:"rate_limit_per_hour"`
}

// pipelineDoc is spec.md §6's "pipeline: {input: [...], output: [...]}"
// shape: guardrail entries scoped to a stage without needing their own
// "stage" key (one is inferred per list, but an explicit one still wins).
type pipelineDoc struct {
	Input  []any `mapstructure:"input" yaml:"input"`
	Output []any `mapstructure:"output" yaml:"output"`
}

// Loader parses a PipelineSpec document, resolves any preset reference,
// and validates the result across every level in spec.md §4.6.
type Loader struct {
	validator *Validator
}

// NewLoader builds a Loader backed by registry for semantic/runtime
// validation.
func NewLoader(registry *guardrails.Registry) *Loader {
	return &Loader{validator: NewValidator(registry)}
}

// LoadFile reads and parses the document at path.
func (l *Loader) LoadFile(ctx context.Context, path string) (core.PipelineSpec, Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return core.PipelineSpec{}, Result{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return l.Load(ctx, raw)
}

// Load parses raw (YAML or JSON, both handled by gopkg.in/yaml.v3),
// resolves a preset reference if present, and runs every validation
// level. A document that fails syntax or schema validation returns
// immediately; semantic and runtime issues are collected but a runtime
// issue alone never fails the Result (see Result.Valid).
func (l *Loader) Load(ctx context.Context, raw []byte) (core.PipelineSpec, Result, error) {
	expanded := expandSecrets(raw)

	var doc map[string]any
	if err := yaml.Unmarshal(expanded, &doc); err != nil {
		return core.PipelineSpec{}, Result{Issues: []Issue{{Level: LevelSyntax, Message: err.Error()}}}, nil
	}

	var parsed document
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &parsed, WeaklyTypedInput: true})
	if err != nil {
		return core.PipelineSpec{}, Result{}, fmt.Errorf("config: build decoder: %w", err)
	}
	if err := dec.Decode(doc); err != nil {
		return core.PipelineSpec{}, Result{Issues: []Issue{{Level: LevelSyntax, Message: err.Error()}}}, nil
	}

	overlay, err := documentToSpec(parsed)
	if err != nil {
		return core.PipelineSpec{}, Result{Issues: []Issue{{Level: LevelSchema, Message: err.Error()}}}, nil
	}

	spec := overlay
	if parsed.Preset != "" {
		base, err := Preset(parsed.Preset)
		if err != nil {
			return core.PipelineSpec{}, Result{Issues: []Issue{{Level: LevelSemantic, Message: err.Error()}}}, nil
		}
		spec, err = MergeOverlay(base, overlay)
		if err != nil {
			return core.PipelineSpec{}, Result{}, err
		}
	}

	result := l.validator.Validate(spec)
	if !result.Valid() {
		return spec, result, nil
	}
	result.Issues = append(result.Issues, l.validator.ValidateRuntime(ctx, spec).Issues...)
	return spec, result, nil
}

// documentToSpec converts the loosely-typed document into a
// core.PipelineSpec, decoding each guardrail entry with its own
// mapstructure pass since GuardrailSpec.Config is itself free-form.
// Entries from "guardrails" and from "pipeline.input"/"pipeline.output"
// are normalized onto the same GuardrailSpec field names before
// decoding (see normalizeGuardrailEntry) so a document written exactly
// as spec.md §6 shows loads without silently dropping fields.
func documentToSpec(doc document) (core.PipelineSpec, error) {
	spec := core.PipelineSpec{
		Name:                 doc.Name,
		Version:              doc.Version,
		Deadline:             doc.Deadline,
		ReorderByPerformance: doc.Reorder,
		RateLimitPerMinute:   doc.RateMinute,
		RateLimitPerHour:     doc.RateHour,
	}

	groups := []struct {
		entries      []any
		defaultStage string
	}{
		{doc.Guardrails, ""},
		{doc.Pipeline.Input, "input"},
		{doc.Pipeline.Output, "output"},
	}

	idx := 0
	for _, grp := range groups {
		for _, raw := range grp.entries {
			normalized, err := normalizeGuardrailEntry(raw, grp.defaultStage)
			if err != nil {
				return core.PipelineSpec{}, fmt.Errorf("guardrails[%d]: %w", idx, err)
			}

			var g core.GuardrailSpec
			dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &g, WeaklyTypedInput: true})
			if err != nil {
				return core.PipelineSpec{}, fmt.Errorf("guardrails[%d]: %w", idx, err)
			}
			if err := dec.Decode(normalized); err != nil {
				return core.PipelineSpec{}, fmt.Errorf("guardrails[%d]: %w", idx, err)
			}
			spec.Guardrails = append(spec.Guardrails, g)
			idx++
		}
	}
	return spec, nil
}

// normalizeGuardrailEntry maps spec.md §6's literal guardrail keys onto
// the names GuardrailSpec's mapstructure tags expect: "stage" (a single
// value, possibly "both") onto "stages", "confidence_threshold" onto
// "threshold", and "timeout_ms" onto "timeout". A key already present
// under the GuardrailSpec name wins over its alias. defaultStage, when
// non-empty, supplies "stages" for an entry that declares neither
// "stage" nor "stages" (an entry under pipeline.input/output).
func normalizeGuardrailEntry(raw any, defaultStage string) (map[string]any, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a guardrail mapping, got %T", raw)
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}

	if _, ok := out["stages"]; !ok {
		if stage, ok := out["stage"].(string); ok {
			out["stages"] = stagesFor(stage)
		} else if defaultStage != "" {
			out["stages"] = stagesFor(defaultStage)
		}
	}

	if _, ok := out["threshold"]; !ok {
		if v, ok := out["confidence_threshold"]; ok {
			out["threshold"] = v
		}
	}

	if _, ok := out["timeout"]; !ok {
		if v, ok := out["timeout_ms"]; ok {
			d, err := millisToDuration(v)
			if err != nil {
				return nil, fmt.Errorf("timeout_ms: %w", err)
			}
			out["timeout"] = d
		}
	}

	return out, nil
}

// stagesFor expands spec.md §3's single "stage" value (including the
// "both" shorthand) into GuardrailSpec.Stages' list form.
func stagesFor(stage string) []string {
	if stage == "both" {
		return []string{"input", "output"}
	}
	return []string{stage}
}

func millisToDuration(v any) (time.Duration, error) {
	switch n := v.(type) {
	case int:
		return time.Duration(n) * time.Millisecond, nil
	case int64:
		return time.Duration(n) * time.Millisecond, nil
	case float64:
		return time.Duration(n) * time.Millisecond, nil
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
