// Package guardrail is the public SDK surface: Pipeline wires together
// internal/config (spec loading + hot reload), internal/guardrails (the
// detector registry), internal/pipeline (ordered dispatch), internal/audit
// (async logging) and internal/health (instrumentation) behind the small
// set of operations SPEC_FULL.md's API section names: load a pipeline
// from a preset or a config document, check input/output content,
// update one guardrail's config at runtime, and report health. Grounded
// on the shape of the teacher's top-level pkg/ facades, which wrap
// internal/ machinery behind a handful of exported methods rather than
// exposing the subsystems directly.
package guardrail

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vitaliisemenov/guardrail-engine/internal/audit"
	"github.com/vitaliisemenov/guardrail-engine/internal/config"
	"github.com/vitaliisemenov/guardrail-engine/internal/convo"
	"github.com/vitaliisemenov/guardrail-engine/internal/core"
	"github.com/vitaliisemenov/guardrail-engine/internal/guardrails"
	"github.com/vitaliisemenov/guardrail-engine/internal/health"
	"github.com/vitaliisemenov/guardrail-engine/internal/pipeline"
)

// built is one fully-constructed, immutable pipeline generation: the
// spec it was built from, the live guardrail instances in the same
// order as spec.Guardrails (Health probes need to reach these
// directly), and the Engine that dispatches against them.
type built struct {
	spec       core.PipelineSpec
	guardrails []core.Guardrail
	engine     *pipeline.Engine
}

// Pipeline is the engine instance a caller builds once and reuses for
// the lifetime of the process. It is safe for concurrent use; reloads
// (FromConfig re-applied, UpdateGuardrail) install a new generation
// behind an atomic swap so in-flight Check calls keep running against
// whichever generation they started with.
type Pipeline struct {
	registry      *guardrails.Registry
	loader        *config.Loader
	logger        *slog.Logger
	generation    atomic.Value // *built
	audit         *audit.Subsystem
	registerer    prometheus.Registerer
	healthReg     *health.Registry
	snapshotter   *health.Snapshotter
	reloadMetrics *config.ReloadMetrics
	convo         *convo.Store
}

// Option customizes Pipeline construction.
type Option func(*Pipeline)

// WithLogger overrides the default slog.Logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithAudit attaches an audit subsystem; Check calls then feed it via
// the AuditRecorder interface. The caller owns Start/Stop.
func WithAudit(sub *audit.Subsystem) Option {
	return func(p *Pipeline) { p.audit = sub }
}

// WithRegisterer overrides which Prometheus registerer the pipeline's
// metrics register against. The zero value (prometheus.DefaultRegisterer)
// is correct for a process running one Pipeline; tests that build more
// than one in the same binary must each pass a fresh prometheus.NewRegistry()
// to avoid a duplicate-registration panic.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(p *Pipeline) { p.registerer = reg }
}

func newPipeline(opts []Option) *Pipeline {
	p := &Pipeline{
		registry: guardrails.NewRegistry(),
		convo:    convo.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.healthReg = health.NewRegistry(p.registerer)
	p.reloadMetrics = config.NewReloadMetrics(p.registerer)
	p.loader = config.NewLoader(p.registry)
	p.snapshotter = health.NewSnapshotter(p.healthReg)
	return p
}

// FromPreset builds a Pipeline from one of internal/config's named
// presets (basic, customer_service, medical, financial, educational).
func FromPreset(name string, opts ...Option) (*Pipeline, error) {
	spec, err := config.Preset(name)
	if err != nil {
		return nil, err
	}
	p := newPipeline(opts)
	if err := p.install(spec); err != nil {
		return nil, err
	}
	return p, nil
}

// FromConfig builds a Pipeline from a raw YAML/JSON document (optionally
// referencing a preset via its top-level "preset" key), validating it
// across every level in spec.md §4.6 before any guardrail runs.
func FromConfig(ctx context.Context, raw []byte, opts ...Option) (*Pipeline, config.Result, error) {
	p := newPipeline(opts)
	spec, result, err := p.loader.Load(ctx, raw)
	if err != nil {
		return nil, result, err
	}
	if !result.Valid() {
		return nil, result, &core.ConfigError{Err: fmt.Errorf("invalid pipeline spec: %v", result.Errors())}
	}
	if err := p.install(spec); err != nil {
		return nil, result, err
	}
	return p, result, nil
}

// Reload re-validates and re-installs raw as the active generation,
// per spec.md §4.6's hot-reload requirement: the new generation is
// fully built and validated off to the side before the atomic swap, so
// a bad document never interrupts the currently-running one.
func (p *Pipeline) Reload(ctx context.Context, raw []byte) (config.Result, error) {
	start := time.Now()
	spec, result, err := p.loader.Load(ctx, raw)
	if err != nil {
		p.reloadMetrics.Total.WithLabelValues("error").Inc()
		return result, err
	}
	if !result.Valid() {
		p.reloadMetrics.Total.WithLabelValues("invalid").Inc()
		return result, &core.ConfigError{Err: fmt.Errorf("invalid pipeline spec: %v", result.Errors())}
	}
	if err := p.install(spec); err != nil {
		p.reloadMetrics.Total.WithLabelValues("error").Inc()
		return result, err
	}
	p.reloadMetrics.Total.WithLabelValues("success").Inc()
	p.reloadMetrics.Duration.Observe(time.Since(start).Seconds())
	p.reloadMetrics.LastSuccess.SetToCurrentTime()
	return result, nil
}

// install builds guardrail instances for spec (including a synthesized
// rate_limit entry when spec's top-level rate fields are set) and
// atomically installs the resulting generation.
func (p *Pipeline) install(spec core.PipelineSpec) error {
	spec = spec.Clone()
	if spec.RateLimitPerMinute > 0 || spec.RateLimitPerHour > 0 {
		spec.Guardrails = append(spec.Guardrails, core.GuardrailSpec{
			Name:    "rate_limit",
			Type:    "rate_limit",
			Enabled: true,
			Stages:  []core.Stage{core.StageInput},
			OnError: core.OnErrorAllow,
			Config: map[string]any{
				"per_minute": spec.RateLimitPerMinute,
				"per_hour":   spec.RateLimitPerHour,
			},
		})
	}

	active := make([]core.GuardrailSpec, 0, len(spec.Guardrails))
	for _, g := range spec.Guardrails {
		if g.Enabled {
			active = append(active, g)
		}
	}
	engineSpec := spec
	engineSpec.Guardrails = active

	live, err := p.registry.BuildAll(active)
	if err != nil {
		return err
	}
	engine, err := pipeline.New(engineSpec, live, p.logger, p.audit)
	if err != nil {
		return err
	}
	p.generation.Store(&built{spec: spec, guardrails: live, engine: engine})
	return nil
}

func (p *Pipeline) current() *built {
	return p.generation.Load().(*built)
}

// Spec returns the PipelineSpec currently active.
func (p *Pipeline) Spec() core.PipelineSpec {
	return p.current().spec
}
