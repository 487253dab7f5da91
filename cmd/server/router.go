package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apierrors "github.com/vitaliisemenov/guardrail-engine/internal/api/errors"
	"github.com/vitaliisemenov/guardrail-engine/internal/api/middleware"
	"github.com/vitaliisemenov/guardrail-engine/internal/config"
	"github.com/vitaliisemenov/guardrail-engine/internal/core"
	"github.com/vitaliisemenov/guardrail-engine/pkg/guardrail"
)

// RouterConfig toggles the middleware NewRouter installs. Grounded on
// the teacher's internal/api/router.go RouterConfig, trimmed to the
// knobs this service actually uses: no alert-publishing or mode-service
// fields, since those routes have no analog here.
type RouterConfig struct {
	EnableAuth        bool
	EnableRateLimit   bool
	EnableCompression bool
	EnableCORS        bool
	MaxRequestBytes   int64

	AuthConfig         middleware.AuthConfig
	CORSConfig         middleware.CORSConfig
	RateLimitPerMinute int
	RateLimitBurst     int
}

// DefaultRouterConfig returns permissive defaults suitable for local
// development: auth off, rate limiting/CORS/compression on.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		EnableAuth:         false,
		EnableRateLimit:    true,
		EnableCompression:  true,
		EnableCORS:         true,
		MaxRequestBytes:    1 << 20,
		CORSConfig:         middleware.DefaultCORSConfig(),
		RateLimitPerMinute: 600,
		RateLimitBurst:     60,
	}
}

// NewRouter builds the HTTP surface over pipe: POST /v1/check(.../...)
// for input/output content checks, conversation-scoped checks, the
// rules/presets introspection endpoints, /v1/reload, and /health plus
// Prometheus's /metrics. Global middleware runs in the order the
// teacher's NewRouter composes it: RequestID, Logging, Metrics, CORS,
// Compression, then per-route-group size limit, auth, rate limit,
// validation.
func NewRouter(pipe *guardrail.Pipeline, reloader *Reloader, cfg RouterConfig, logger *slog.Logger) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.MetricsMiddleware)
	if cfg.EnableCORS {
		router.Use(middleware.CORSMiddleware(cfg.CORSConfig))
	}
	if cfg.EnableCompression {
		router.Use(middleware.CompressionMiddleware)
	}

	sizeLimiter := middleware.NewRequestSizeLimiter(cfg.MaxRequestBytes, logger)

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.Use(sizeLimiter.Middleware())
	if cfg.EnableAuth {
		v1.Use(middleware.AuthMiddleware(cfg.AuthConfig))
	}
	if cfg.EnableRateLimit {
		v1.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute, cfg.RateLimitBurst))
	}
	v1.Use(middleware.ValidationMiddleware)

	ch := &checkHandler{pipeline: pipe}
	v1.HandleFunc("/check", ch.handleCheck).Methods(http.MethodPost)

	cvh := &conversationHandler{pipeline: pipe}
	v1.HandleFunc("/conversations", cvh.open).Methods(http.MethodPost)
	v1.HandleFunc("/conversations/{id}/check", cvh.check).Methods(http.MethodPost)
	v1.HandleFunc("/conversations/{id}/history", cvh.history).Methods(http.MethodGet)
	v1.HandleFunc("/conversations/{id}", cvh.close).Methods(http.MethodDelete)

	rh := &rulesHandler{pipeline: pipe}
	v1.HandleFunc("/rules", rh.list).Methods(http.MethodGet)
	v1.HandleFunc("/rules/{name}", rh.update).Methods(http.MethodPatch)
	v1.HandleFunc("/presets", rh.presets).Methods(http.MethodGet)

	if reloader != nil {
		v1.HandleFunc("/reload", reloader.handleHTTP).Methods(http.MethodPost)
	}

	router.HandleFunc("/health", healthHandler(pipe)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return router
}

// healthHandler reports the pipeline's live HealthSnapshot, returning
// 503 when any detector probe failed so a load balancer can route
// around an unhealthy instance.
func healthHandler(pipe *guardrail.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		snapshot := pipe.Health(ctx)
		w.Header().Set("Content-Type", "application/json")
		if !snapshot.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(snapshot)
	}
}

// rulesHandler exposes the active PipelineSpec's guardrails and the
// preset catalog config.PresetNames offers.
type rulesHandler struct {
	pipeline *guardrail.Pipeline
}

type ruleDTO struct {
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	Enabled   bool           `json:"enabled"`
	Stages    []string       `json:"stages"`
	Threshold float64        `json:"threshold"`
	OnError   string         `json:"on_error"`
	Config    map[string]any `json:"config,omitempty"`
}

func (h *rulesHandler) list(w http.ResponseWriter, r *http.Request) {
	spec := h.pipeline.Spec()
	rules := make([]ruleDTO, 0, len(spec.Guardrails))
	for _, g := range spec.Guardrails {
		stages := make([]string, len(g.Stages))
		for i, s := range g.Stages {
			stages[i] = string(s)
		}
		rules = append(rules, ruleDTO{
			Name:      g.Name,
			Type:      g.Type,
			Enabled:   g.Enabled,
			Stages:    stages,
			Threshold: g.Threshold,
			OnError:   string(g.OnError),
			Config:    g.Config,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":                   spec.Name,
		"version":                spec.Version,
		"deadline_ms":            spec.Deadline,
		"reorder_by_performance": spec.ReorderByPerformance,
		"rate_limit_per_minute":  spec.RateLimitPerMinute,
		"rate_limit_per_hour":    spec.RateLimitPerHour,
		"guardrails":             rules,
	})
}

func (h *rulesHandler) presets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"presets": config.PresetNames()})
}

// update mutates one guardrail's Enabled/Threshold/Config via
// pkg/guardrail.Pipeline.UpdateGuardrail, which reinstalls the pipeline
// as a new generation behind the atomic swap.
func (h *rulesHandler) update(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var body struct {
		Enabled   *bool          `json:"enabled"`
		Threshold *float64       `json:"threshold"`
		Config    map[string]any `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierrors.WriteError(w, apierrors.ValidationError("malformed request body: "+err.Error()))
		return
	}

	err := h.pipeline.UpdateGuardrail(name, func(spec *core.GuardrailSpec) {
		if body.Enabled != nil {
			spec.Enabled = *body.Enabled
		}
		if body.Threshold != nil {
			spec.Threshold = *body.Threshold
		}
		if body.Config != nil {
			spec.Config = body.Config
		}
	})
	if err != nil {
		apierrors.WriteError(w, apierrors.NotFoundError("guardrail "+name).WithDetails(err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
