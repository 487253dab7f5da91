package guardrails

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// decodeConfig decodes a GuardrailSpec's free-form Config map into a
// typed struct using mapstructure tags, the same decoding idiom the
// config loader uses for the outer PipelineSpec document.
func decodeConfig(raw map[string]any, out any) error {
	if raw == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("guardrail config decoder: %w", err)
	}
	return dec.Decode(raw)
}

// threshold returns spec.Threshold, falling back to def when the spec
// left it at the zero value.
func threshold(spec core.GuardrailSpec, def float64) float64 {
	if spec.Threshold > 0 {
		return spec.Threshold
	}
	return def
}

// onErrorOrDefault returns spec.OnError, defaulting to "block" fail-safe when
// the spec left it empty (a guardrail spec should always set this
// explicitly; this is a last-resort default for hand-built specs in
// tests).
func onErrorOrDefault(spec core.GuardrailSpec) core.OnError {
	if spec.OnError == "" {
		return core.OnErrorBlock
	}
	return spec.OnError
}

// allowResult is the shared "nothing found" result every pattern
// guardrail returns when its check finds no indicators. Action is left
// unset: it is the engine's job, not the detector's, to stamp a result
// with the guardrail's configured action (internal/pipeline.applyAction).
func allowResult(name, typ string) core.GuardrailResult {
	return core.GuardrailResult{
		GuardrailName: name,
		GuardrailType: typ,
		Blocked:       false,
		RiskLevel:     core.RiskNone,
	}
}
