package guardrail

import (
	"fmt"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// UpdateGuardrail applies mutate to a copy of the named guardrail's
// spec (e.g. toggling Enabled, changing Threshold or Config) and
// installs the result as a new generation. The previous generation
// keeps serving any Check call already in flight.
func (p *Pipeline) UpdateGuardrail(name string, mutate func(*core.GuardrailSpec)) error {
	spec := p.current().spec.Clone()
	found := false
	for i := range spec.Guardrails {
		if spec.Guardrails[i].Name == name {
			mutate(&spec.Guardrails[i])
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("guardrail: no guardrail named %q in the active pipeline", name)
	}
	return p.install(spec)
}
