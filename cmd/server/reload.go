package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	apierrors "github.com/vitaliisemenov/guardrail-engine/internal/api/errors"
	"github.com/vitaliisemenov/guardrail-engine/internal/api/middleware"
	"github.com/vitaliisemenov/guardrail-engine/pkg/guardrail"
)

// Reloader triggers pkg/guardrail.Pipeline.Reload either from a SIGHUP
// (re-reading configPath from disk) or from an HTTP POST carrying a
// replacement document. Grounded on the teacher's cmd/server/signal.go
// debounce/signal-listener/reload-worker shape; its ConfigUpdateService
// indirection, rollback bookkeeping, and dedicated Prometheus metrics
// have no analog here because Pipeline.Reload already validates,
// installs, and records its own metrics atomically — this type's only
// job is to decide *when* to call it.
type Reloader struct {
	pipeline   *guardrail.Pipeline
	configPath string
	logger     *slog.Logger

	lastReload     atomic.Value // time.Time
	debounceWindow time.Duration

	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	sigChan    chan os.Signal
	reloadChan chan struct{}
}

// NewReloader builds a Reloader bound to pipe. configPath may be empty
// when the pipeline was started from a preset; SIGHUP is still
// accepted in that case but logs a no-op warning since there is
// nothing on disk to re-read.
func NewReloader(pipe *guardrail.Pipeline, configPath string, logger *slog.Logger) *Reloader {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Reloader{
		pipeline:       pipe,
		configPath:     configPath,
		logger:         logger,
		debounceWindow: time.Second,
		ctx:            ctx,
		cancel:         cancel,
		sigChan:        make(chan os.Signal, 1),
		reloadChan:     make(chan struct{}, 10),
	}
}

// Start launches the signal listener and reload worker goroutines.
func (rl *Reloader) Start() {
	signal.Notify(rl.sigChan, syscall.SIGHUP)
	rl.wg.Add(2)
	go rl.listen()
	go rl.work()
	rl.logger.Info("reload handler started", "signal", "SIGHUP", "config_path", rl.configPath)
}

// Stop unregisters the signal and waits for both goroutines to exit.
func (rl *Reloader) Stop() {
	signal.Stop(rl.sigChan)
	close(rl.sigChan)
	rl.cancel()
	rl.wg.Wait()
}

func (rl *Reloader) listen() {
	defer rl.wg.Done()
	for {
		select {
		case _, ok := <-rl.sigChan:
			if !ok {
				return
			}
			select {
			case rl.reloadChan <- struct{}{}:
			default:
				rl.logger.Warn("reload already queued, dropping duplicate SIGHUP")
			}
		case <-rl.ctx.Done():
			return
		}
	}
}

func (rl *Reloader) work() {
	defer rl.wg.Done()
	for {
		select {
		case <-rl.reloadChan:
			if rl.debounced() {
				rl.logger.Debug("reload debounced")
				continue
			}
			rl.lastReload.Store(time.Now())
			rl.reloadFromDisk()
		case <-rl.ctx.Done():
			return
		}
	}
}

func (rl *Reloader) debounced() bool {
	v := rl.lastReload.Load()
	if v == nil {
		return false
	}
	return time.Since(v.(time.Time)) < rl.debounceWindow
}

func (rl *Reloader) reloadFromDisk() {
	if rl.configPath == "" {
		rl.logger.Warn("SIGHUP received but pipeline was started from a preset, nothing to reload")
		return
	}
	raw, err := os.ReadFile(rl.configPath)
	if err != nil {
		rl.logger.Error("reload: failed to read config file", "path", rl.configPath, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(rl.ctx, 30*time.Second)
	defer cancel()
	if _, err := rl.pipeline.Reload(ctx, raw); err != nil {
		rl.logger.Error("reload failed", "source", "sighup", "error", err)
		return
	}
	rl.logger.Info("reload succeeded", "source", "sighup", "path", rl.configPath)
}

// handleHTTP is the POST /v1/reload handler: the request body is the
// replacement pipeline document, validated and installed synchronously
// so the caller's response reflects the outcome.
func (rl *Reloader) handleHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		apierrors.WriteError(w, apierrors.ValidationError("failed to read request body: "+err.Error()))
		return
	}

	result, err := rl.pipeline.Reload(r.Context(), raw)
	if err != nil {
		requestID := middleware.GetRequestID(r.Context())
		apierrors.WriteError(w, apierrors.ValidationError(fmt.Sprintf("reload rejected: %v", err)).
			WithDetails(result.Issues).
			WithRequestID(requestID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reloaded": true, "warnings": result.Issues})
}
