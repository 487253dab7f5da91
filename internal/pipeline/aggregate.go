package pipeline

import "github.com/vitaliisemenov/guardrail-engine/internal/core"

// Result is what a single Engine.Check call returns: the verdict for
// one piece of content plus every guardrail result that contributed to
// it, in execution order.
type Result struct {
	Blocked    bool
	Confidence float64
	Reasons    []string
	Results    []core.GuardrailResult
	Canceled   bool
}

// aggregate folds a sequence of GuardrailResults into the pipeline-level
// verdict described in spec.md §4.2: blocked iff any non-overridden
// block fired; confidence is the max among blocking results, or the max
// overall when nothing blocked; reasons is the ordered list of
// guardrail names that contributed a block or warn.
func aggregate(results []core.GuardrailResult) Result {
	out := Result{Results: results}
	maxOverall := 0.0
	maxBlocking := 0.0

	for _, r := range results {
		if r.Confidence > maxOverall {
			maxOverall = r.Confidence
		}
		switch {
		case r.Blocked && r.Action == core.ActionBlock:
			out.Blocked = true
			out.Reasons = append(out.Reasons, r.GuardrailName)
			if r.Confidence > maxBlocking {
				maxBlocking = r.Confidence
			}
		case r.Blocked && r.Action == core.ActionWarn:
			out.Reasons = append(out.Reasons, r.GuardrailName)
		}
	}

	if out.Blocked {
		out.Confidence = maxBlocking
	} else {
		out.Confidence = maxOverall
	}
	return out
}
