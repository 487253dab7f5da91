// Package config loads a declarative PipelineSpec document and
// validates it through four levels of scrutiny. Grounded on the teacher's
// internal/config/{config,update_validator,reload_coordinator}.go: Viper/
// mapstructure layering for the document format and a multi-phase
// validator built on github.com/go-playground/validator/v10. The atomic
// hot-reload swap of the active pipeline lives in pkg/guardrail.Pipeline,
// not in this package.
package config

import "fmt"

// Level identifies one of the four validation passes spec.md §4.6
// requires, in the order they run.
type Level int

const (
	LevelSyntax Level = iota
	LevelSchema
	LevelSemantic
	LevelRuntime
)

func (l Level) String() string {
	switch l {
	case LevelSyntax:
		return "syntax"
	case LevelSchema:
		return "schema"
	case LevelSemantic:
		return "semantic"
	case LevelRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Issue is one problem found during validation. Runtime-level issues are
// always warnings (spec.md §4.6: "referenced external providers
// reachable (warn only)"); every other level is fatal.
type Issue struct {
	Level   Level
	Field   string
	Message string
	Warning bool
}

func (i Issue) String() string {
	kind := "error"
	if i.Warning {
		kind = "warning"
	}
	if i.Field == "" {
		return fmt.Sprintf("[%s %s] %s", i.Level, kind, i.Message)
	}
	return fmt.Sprintf("[%s %s] %s: %s", i.Level, kind, i.Field, i.Message)
}

// Result is the outcome of validating a document or spec.
type Result struct {
	Issues []Issue
}

// Valid reports whether every non-warning issue is absent. A document
// with only runtime warnings is still Valid.
func (r Result) Valid() bool {
	for _, i := range r.Issues {
		if !i.Warning {
			return false
		}
	}
	return true
}

// Errors returns only the fatal issues.
func (r Result) Errors() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if !i.Warning {
			out = append(out, i)
		}
	}
	return out
}

// Warnings returns only the non-fatal issues.
func (r Result) Warnings() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Warning {
			out = append(out, i)
		}
	}
	return out
}

func (r *Result) add(level Level, field, message string, warning bool) {
	r.Issues = append(r.Issues, Issue{Level: level, Field: field, Message: message, Warning: warning})
}
