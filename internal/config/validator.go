package config

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
	"github.com/vitaliisemenov/guardrail-engine/internal/guardrails"
)

// Validator runs the four validation levels from spec.md §4.6 against a
// core.PipelineSpec. Grounded on the teacher's update_validator.go
// multi-phase validator (structural / business / cross-field / security
// phases), remapped onto syntax/schema/semantic/runtime.
type Validator struct {
	structural *validator.Validate
	registry   *guardrails.Registry
}

// NewValidator builds a Validator. registry is consulted at the
// semantic level to confirm every guardrail type name resolves to a
// known built-in (spec.md §4.6: "Unknown detector types fail schema
// validation" — checked here rather than at schema level since only
// the registry, not a struct tag, knows what's registered).
func NewValidator(registry *guardrails.Registry) *Validator {
	return &Validator{structural: validator.New(), registry: registry}
}

// Validate runs schema and semantic checks against spec (syntax has
// already passed by the time a caller has a parsed PipelineSpec; see
// loader.go). Runtime checks are not included here since they require
// network access — ValidateRuntime below runs them separately so a
// caller can skip them in fast paths (e.g. config-reload dry-runs).
func (v *Validator) Validate(spec core.PipelineSpec) Result {
	var result Result

	if err := v.structural.Struct(spec); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, e := range verrs {
				result.add(LevelSchema, e.Namespace(), e.Tag(), false)
			}
		} else {
			result.add(LevelSchema, "", err.Error(), false)
		}
	}

	seen := make(map[string]bool, len(spec.Guardrails))
	for _, g := range spec.Guardrails {
		field := fmt.Sprintf("guardrails[%s]", g.Name)

		if seen[g.Name] {
			result.add(LevelSemantic, field, "duplicate guardrail name", false)
		}
		seen[g.Name] = true

		if v.registry != nil {
			if _, err := v.registry.Build(core.GuardrailSpec{
				Name: g.Name, Type: g.Type, Stages: g.Stages, OnError: g.OnError, Config: g.Config,
			}); err != nil {
				result.add(LevelSemantic, field, err.Error(), false)
			}
		}

		if g.Type == "compound" && len(g.Stages) == 0 {
			result.add(LevelSemantic, field, "compound guardrail must declare at least one stage", false)
		}
	}

	if spec.RateLimitPerMinute > 0 && spec.RateLimitPerHour > 0 && spec.RateLimitPerHour < spec.RateLimitPerMinute {
		result.add(LevelSemantic, "rate_limit_per_hour", "must be >= rate_limit_per_minute when both are set", false)
	}

	return result
}

// ValidateRuntime probes every model-assisted guardrail's upstream for
// reachability. Per spec.md §4.6 these are warnings, never fatal: an
// unreachable classifier at load time doesn't prevent a pipeline from
// becoming active, since the circuit breaker handles it at request
// time.
func (v *Validator) ValidateRuntime(ctx context.Context, spec core.PipelineSpec) Result {
	var result Result
	for _, g := range spec.Guardrails {
		if g.Type != "model_assisted" {
			continue
		}
		built, err := v.registry.Build(g)
		if err != nil {
			continue // already reported at the semantic level
		}
		prober, ok := built.(interface{ Health(context.Context) error })
		if !ok {
			continue
		}
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = prober.Health(probeCtx)
		cancel()
		if err != nil {
			result.add(LevelRuntime, fmt.Sprintf("guardrails[%s]", g.Name),
				fmt.Sprintf("upstream unreachable: %v", err), true)
		}
	}
	return result
}
