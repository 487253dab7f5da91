// Package main is the entry point for the guardrail engine's HTTP
// service: a cobra CLI that loads a pipeline (from a preset or a config
// file), serves it over HTTP, and reloads it on SIGHUP or POST /v1/reload.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vitaliisemenov/guardrail-engine/internal/audit"
	"github.com/vitaliisemenov/guardrail-engine/pkg/guardrail"
	"github.com/vitaliisemenov/guardrail-engine/pkg/logger"
)

const serviceName = "guardrail-engine"

var (
	flagConfig     string
	flagPreset     string
	flagAddr       string
	flagLogLevel   string
	flagLogFormat  string
	flagAuditSink  string
	flagAuditPath  string
	flagRedactPII  bool
)

func main() {
	root := &cobra.Command{
		Use:     serviceName,
		Short:   "Runs the guardrail engine as an HTTP service",
		Version: "1.0.0",
		RunE:    runServe,
	}

	root.Flags().StringVar(&flagConfig, "config", "", "path to a pipeline spec document (YAML/JSON); mutually exclusive with --preset")
	root.Flags().StringVar(&flagPreset, "preset", "", "named preset to load (basic, customer_service, medical, financial, educational)")
	root.Flags().StringVar(&flagAddr, "addr", ":8080", "HTTP listen address")
	root.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug|info|warn|error")
	root.Flags().StringVar(&flagLogFormat, "log-format", "json", "log format: json|text")
	root.Flags().StringVar(&flagAuditSink, "audit-sink", "stdout", "audit sink: stdout|file|none")
	root.Flags().StringVar(&flagAuditPath, "audit-path", "audit.log", "file path when --audit-sink=file")
	root.Flags().BoolVar(&flagRedactPII, "audit-redact-pii", true, "redact PII fields before an audit event is written")

	viper.SetEnvPrefix("GUARDRAIL")
	viper.AutomaticEnv()
	_ = viper.BindPFlags(root.Flags())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.NewLogger(logger.Config{
		Level:  flagLogLevel,
		Format: flagLogFormat,
		Output: "stdout",
	})
	log.Info("starting "+serviceName, "addr", flagAddr, "preset", flagPreset, "config", flagConfig)

	var auditSub *audit.Subsystem
	if flagAuditSink != "none" {
		auditSub = audit.New(audit.Config{
			Sink:      buildAuditSink(),
			RedactPII: flagRedactPII,
			Logger:    log,
		})
		auditSub.Start(context.Background())
		defer auditSub.Stop(5 * time.Second)
	}

	pipe, err := buildPipeline(log, auditSub)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	reloader := NewReloader(pipe, flagConfig, log)
	reloader.Start()
	defer reloader.Stop()

	router := NewRouter(pipe, reloader, DefaultRouterConfig(), log)
	server := &http.Server{
		Addr:         flagAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", flagAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}

// buildPipeline loads a Pipeline from --config when set, otherwise from
// --preset; exactly one of the two must be provided.
func buildPipeline(log *slog.Logger, auditSub *audit.Subsystem) (*guardrail.Pipeline, error) {
	opts := []guardrail.Option{guardrail.WithLogger(log)}
	if auditSub != nil {
		opts = append(opts, guardrail.WithAudit(auditSub))
	}

	switch {
	case flagConfig != "" && flagPreset != "":
		return nil, fmt.Errorf("--config and --preset are mutually exclusive")
	case flagConfig != "":
		raw, err := os.ReadFile(flagConfig)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pipe, result, err := guardrail.FromConfig(ctx, raw, opts...)
		if err != nil {
			return nil, err
		}
		for _, issue := range result.Issues {
			log.Warn("pipeline spec issue", "level", issue.Level, "message", issue.Message)
		}
		return pipe, nil
	case flagPreset != "":
		return guardrail.FromPreset(flagPreset, opts...)
	default:
		return nil, fmt.Errorf("either --config or --preset is required")
	}
}

func buildAuditSink() audit.Sink {
	switch flagAuditSink {
	case "file":
		return audit.NewFileSink(flagAuditPath, 100, 5, 30, true)
	default:
		return audit.NewJSONLSink(os.Stdout)
	}
}
