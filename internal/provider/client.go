package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// Verdict is what a classifier client returns about a piece of Content:
// enough for model_assisted.go to build a core.GuardrailResult without
// knowing anything about the provider's wire format.
type Verdict struct {
	Flagged    bool
	Confidence float64
	RiskLevel  core.RiskLevel
	Categories []string
	Reasoning  string
}

// ClassifierClient is the contract a model-assisted guardrail calls
// through. Implementations live behind a circuit breaker
// (internal/resilience.CircuitBreaker) owned by the guardrail, not by
// the client itself, so the same client type works whether or not the
// caller wants breaker protection.
type ClassifierClient interface {
	Classify(ctx context.Context, content core.Content) (Verdict, error)
	Health(ctx context.Context) error
}

// Config configures an HTTPClassifierClient.
type Config struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// DefaultConfig returns sane defaults for a classifier client.
func DefaultConfig() Config {
	return Config{
		Model:      "moderation-latest",
		Timeout:    10 * time.Second,
		MaxRetries: 2,
	}
}

// classifyRequest is the wire format sent to the provider.
type classifyRequest struct {
	Text  string `json:"text"`
	Stage string `json:"stage"`
	Model string `json:"model"`
}

// classifyResponse is the wire format a provider returns.
type classifyResponse struct {
	Flagged    bool     `json:"flagged"`
	Confidence float64  `json:"confidence"`
	RiskLevel  string   `json:"risk_level"`
	Categories []string `json:"categories,omitempty"`
	Reasoning  string   `json:"reasoning,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// HTTPClassifierClient implements ClassifierClient over HTTP/JSON.
type HTTPClassifierClient struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClassifierClient builds a client. logger may be nil.
func NewHTTPClassifierClient(config Config, logger *slog.Logger) *HTTPClassifierClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClassifierClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

// Classify sends content to the provider and decodes its verdict. It
// performs no retries itself; callers wrap Classify in
// internal/resilience.WithRetry and internal/resilience.CircuitBreaker
// when they want those behaviors.
func (c *HTTPClassifierClient) Classify(ctx context.Context, content core.Content) (Verdict, error) {
	reqBody, err := json.Marshal(classifyRequest{
		Text:  content.Text,
		Stage: string(content.Stage),
		Model: c.config.Model,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	url := c.config.BaseURL + "/v1/classify"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	c.logger.Debug("sending classification request", "url", url, "model", c.config.Model)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Verdict{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if resp.StatusCode != http.StatusOK {
		return Verdict{}, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed classifyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if parsed.Error != "" {
		return Verdict{}, fmt.Errorf("provider returned error: %s", parsed.Error)
	}

	return responseToVerdict(parsed), nil
}

// Health reports whether the provider endpoint is reachable.
func (c *HTTPClassifierClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: resp.StatusCode}
	}
	return nil
}

// MockClassifierClient implements ClassifierClient for tests.
type MockClassifierClient struct {
	ClassifyFunc func(ctx context.Context, content core.Content) (Verdict, error)
	HealthFunc   func(ctx context.Context) error
}

func (m *MockClassifierClient) Classify(ctx context.Context, content core.Content) (Verdict, error) {
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, content)
	}
	return Verdict{}, nil
}

func (m *MockClassifierClient) Health(ctx context.Context) error {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}
