package guardrails

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/vitaliisemenov/guardrail-engine/internal/cache"
	"github.com/vitaliisemenov/guardrail-engine/internal/core"
	"github.com/vitaliisemenov/guardrail-engine/internal/provider"
	"github.com/vitaliisemenov/guardrail-engine/internal/resilience"
)

// modelAssistedConfig configures modelAssistedGuardrail.
type modelAssistedConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	CacheSize   int           `mapstructure:"cache_size"`
}

// breakerMetrics holds one CircuitBreakerMetrics per metric subsystem, so a
// guardrail built again under the same name reuses its registered series.
var (
	breakerMetricsMu  sync.Mutex
	breakerMetrics    = map[string]*resilience.CircuitBreakerMetrics{}
	invalidMetricRune = regexp.MustCompile(`[^a-zA-Z0-9_]`)
)

// modelAssistedGuardrail calls out to an external classifier behind a
// circuit breaker and a cache.TwoTier result cache. The cache is built
// without an L2 tier, so results are held only in the in-process LRU,
// where entries do not expire. Per spec §9 it does NOT
// fall back to a pattern detector when the upstream is unavailable: a
// failed call surfaces as a core.DetectorError/core.UpstreamError and it
// is the pipeline's on_error policy, not this guardrail, that decides
// whether that becomes a block, a warn, or a pass.
type modelAssistedGuardrail struct {
	spec    core.GuardrailSpec
	client  provider.ClassifierClient
	breaker *resilience.CircuitBreaker
	cache   *cache.TwoTier
}

func newModelAssistedGuardrail(spec core.GuardrailSpec) (core.Guardrail, error) {
	var cfg modelAssistedConfig
	if err := decodeConfig(spec.Config, &cfg); err != nil {
		return nil, fmt.Errorf("model_assisted guardrail %q: %w", spec.Name, err)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("model_assisted guardrail %q: base_url is required", spec.Name)
	}

	pc := provider.DefaultConfig()
	pc.BaseURL = cfg.BaseURL
	pc.APIKey = cfg.APIKey
	if cfg.Model != "" {
		pc.Model = cfg.Model
	}
	if cfg.Timeout > 0 {
		pc.Timeout = cfg.Timeout
	}
	client := provider.NewHTTPClassifierClient(pc, nil)

	cbConfig := resilience.DefaultCircuitBreakerConfig()
	subsystem := "guardrail_" + invalidMetricRune.ReplaceAllString(spec.Name, "_")
	breakerMetricsMu.Lock()
	metrics, ok := breakerMetrics[subsystem]
	if !ok {
		metrics = resilience.NewCircuitBreakerMetrics(subsystem)
		breakerMetrics[subsystem] = metrics
	}
	breakerMetricsMu.Unlock()
	breaker, err := resilience.NewCircuitBreaker(cbConfig, nil, metrics)
	if err != nil {
		return nil, fmt.Errorf("model_assisted guardrail %q: %w", spec.Name, err)
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	twoTier, err := cache.NewTwoTier(cfg.CacheSize, nil, ttl)
	if err != nil {
		return nil, fmt.Errorf("model_assisted guardrail %q: %w", spec.Name, err)
	}

	return &modelAssistedGuardrail{spec: spec, client: client, breaker: breaker, cache: twoTier}, nil
}

func (g *modelAssistedGuardrail) Name() string                        { return g.spec.Name }
func (g *modelAssistedGuardrail) Type() string                         { return "model_assisted" }
func (g *modelAssistedGuardrail) PerformanceClass() core.PerformanceClass { return core.PerformanceSlow }

// Health reports whether this guardrail's upstream classifier is
// reachable. internal/config's runtime validation level calls this
// through a type assertion; it is not part of core.Guardrail.
func (g *modelAssistedGuardrail) Health(ctx context.Context) error {
	return g.client.Health(ctx)
}

func (g *modelAssistedGuardrail) Analyze(ctx context.Context, content core.Content, _ core.GuardrailContext) (core.GuardrailResult, error) {
	start := time.Now()
	th := threshold(g.spec, 0.5)

	cacheKey := cacheKeyFor(g.spec.Name, content)
	var verdict provider.Verdict
	if err := g.cache.Get(ctx, cacheKey, &verdict); err == nil {
		return verdictToResult(g, verdict, th, time.Since(start)), nil
	}

	callErr := g.breaker.Call(ctx, func(ctx context.Context) error {
		v, err := g.client.Classify(ctx, content)
		if err != nil {
			return err
		}
		verdict = v
		return nil
	})
	if callErr != nil {
		return core.GuardrailResult{}, &core.DetectorError{
			Guardrail: g.spec.Name,
			Err:       &core.UpstreamError{Provider: g.spec.Name, Err: callErr},
		}
	}

	_ = g.cache.Set(ctx, cacheKey, verdict)
	return verdictToResult(g, verdict, th, time.Since(start)), nil
}

func verdictToResult(g *modelAssistedGuardrail, verdict provider.Verdict, th float64, latency time.Duration) core.GuardrailResult {
	result := allowResult(g.Name(), g.Type())
	result.Confidence = verdict.Confidence
	result.Indicators = verdict.Categories
	result.Reason = verdict.Reasoning
	result.Latency = latency
	result.RiskLevel = verdict.RiskLevel

	if verdict.Flagged && verdict.Confidence >= th {
		result.Blocked = true
	}
	return result
}

func cacheKeyFor(name string, content core.Content) string {
	return name + ":" + string(content.Stage) + ":" + content.Text
}
