package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by CircuitBreaker.Call when the circuit is
// open (or half-open with its test slot already taken) and the call is
// rejected without invoking the operation.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState is the circuit breaker's state machine position.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

type callResult struct {
	timestamp time.Time
	success   bool
	duration  time.Duration
	slow      bool
}

// CircuitBreaker protects a single upstream dependency (a model-assisted
// guardrail's classifier client, or any other external call a guardrail
// makes) from cascading failure by failing fast once the dependency
// looks unhealthy. Thread-safe for concurrent use.
type CircuitBreaker struct {
	maxFailures      int
	resetTimeout     time.Duration
	failureThreshold float64
	timeWindow       time.Duration
	slowCallDuration time.Duration
	halfOpenMaxCalls int

	mu                   sync.RWMutex
	state                CircuitState
	failureCount         int
	successCount         int
	consecutiveFailures  int
	consecutiveSuccesses int
	lastStateChange      time.Time
	lastFailure          time.Time
	lastSuccess          time.Time
	halfOpenCalls        int
	callResults          []callResult

	logger  *slog.Logger
	metrics *CircuitBreakerMetrics
}

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	MaxFailures      int           `mapstructure:"max_failures"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
	FailureThreshold float64       `mapstructure:"failure_threshold"`
	TimeWindow       time.Duration `mapstructure:"time_window"`
	SlowCallDuration time.Duration `mapstructure:"slow_call_duration"`
	HalfOpenMaxCalls int           `mapstructure:"half_open_max_calls"`
}

// DefaultCircuitBreakerConfig returns sane defaults for a guardrail's
// upstream dependency call.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures:      5,
		ResetTimeout:     30 * time.Second,
		FailureThreshold: 0.5,
		TimeWindow:       60 * time.Second,
		SlowCallDuration: 3 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

func (c CircuitBreakerConfig) Validate() error {
	if c.MaxFailures <= 0 {
		return errors.New("max_failures must be positive")
	}
	if c.ResetTimeout <= 0 {
		return errors.New("reset_timeout must be positive")
	}
	if c.FailureThreshold < 0 || c.FailureThreshold > 1 {
		return errors.New("failure_threshold must be between 0 and 1")
	}
	if c.TimeWindow <= 0 {
		return errors.New("time_window must be positive")
	}
	if c.SlowCallDuration <= 0 {
		return errors.New("slow_call_duration must be positive")
	}
	if c.HalfOpenMaxCalls <= 0 {
		return errors.New("half_open_max_calls must be positive")
	}
	return nil
}

// NewCircuitBreaker builds a breaker from config. metrics may be nil
// (observability is optional, used when the caller wants the breaker's
// state reflected in internal/health).
func NewCircuitBreaker(config CircuitBreakerConfig, logger *slog.Logger, metrics *CircuitBreakerMetrics) (*CircuitBreaker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	cb := &CircuitBreaker{
		maxFailures:      config.MaxFailures,
		resetTimeout:     config.ResetTimeout,
		failureThreshold: config.FailureThreshold,
		timeWindow:       config.TimeWindow,
		slowCallDuration: config.SlowCallDuration,
		halfOpenMaxCalls: config.HalfOpenMaxCalls,
		state:            StateClosed,
		lastStateChange:  time.Now(),
		callResults:      make([]callResult, 0, 100),
		logger:           logger,
		metrics:          metrics,
	}
	if metrics != nil {
		metrics.State.Set(float64(StateClosed))
	}
	return cb, nil
}

// Call runs operation through the breaker, returning ErrCircuitOpen
// without invoking operation when the circuit is open.
func (cb *CircuitBreaker) Call(ctx context.Context, operation func(ctx context.Context) error) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}
	start := time.Now()
	err := operation(ctx)
	cb.afterCall(err, time.Since(start))
	return err
}

func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastStateChange) >= cb.resetTimeout {
			cb.transitionToHalfOpenUnsafe()
			return nil
		}
		if cb.metrics != nil {
			cb.metrics.RequestsBlocked.Inc()
		}
		return ErrCircuitOpen

	case StateHalfOpen:
		if cb.halfOpenCalls >= cb.halfOpenMaxCalls {
			if cb.metrics != nil {
				cb.metrics.RequestsBlocked.Inc()
			}
			return ErrCircuitOpen
		}
		cb.halfOpenCalls++
		if cb.metrics != nil {
			cb.metrics.HalfOpenRequests.Inc()
		}
		return nil

	default: // StateClosed
		return nil
	}
}

func (cb *CircuitBreaker) afterCall(err error, duration time.Duration) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	isSlow := duration >= cb.slowCallDuration
	isSuccess := err == nil && !isSlow
	now := time.Now()

	cb.callResults = append(cb.callResults, callResult{timestamp: now, success: isSuccess, duration: duration, slow: isSlow})
	cb.cleanOldResultsUnsafe()

	if isSuccess {
		cb.successCount++
		cb.consecutiveSuccesses++
		cb.consecutiveFailures = 0
		cb.lastSuccess = now
		if cb.metrics != nil {
			cb.metrics.Successes.Inc()
			cb.metrics.CallDuration.WithLabelValues("success").Observe(duration.Seconds())
		}
	} else {
		cb.failureCount++
		cb.consecutiveFailures++
		cb.consecutiveSuccesses = 0
		cb.lastFailure = now
		if cb.metrics != nil {
			cb.metrics.Failures.Inc()
			if isSlow {
				cb.metrics.SlowCalls.Inc()
			}
			cb.metrics.CallDuration.WithLabelValues("failure").Observe(duration.Seconds())
		}
	}

	switch cb.state {
	case StateClosed:
		if cb.shouldOpenUnsafe() {
			cb.transitionToOpenUnsafe()
		}
	case StateHalfOpen:
		if isSuccess {
			cb.transitionToClosedUnsafe()
		} else {
			cb.transitionToOpenUnsafe()
		}
	}
}

func (cb *CircuitBreaker) shouldOpenUnsafe() bool {
	if len(cb.callResults) < cb.maxFailures {
		return false
	}
	if cb.consecutiveFailures >= cb.maxFailures {
		return true
	}
	failures := 0
	for _, r := range cb.callResults {
		if !r.success {
			failures++
		}
	}
	return float64(failures)/float64(len(cb.callResults)) >= cb.failureThreshold
}

func (cb *CircuitBreaker) transitionToOpenUnsafe() {
	old := cb.state
	cb.state = StateOpen
	cb.lastStateChange = time.Now()
	cb.halfOpenCalls = 0
	cb.logger.Warn("circuit breaker opened", "previous_state", old, "consecutive_failures", cb.consecutiveFailures, "reset_timeout", cb.resetTimeout)
	if cb.metrics != nil {
		cb.metrics.StateChanges.WithLabelValues(old.String(), "open").Inc()
		cb.metrics.State.Set(float64(StateOpen))
	}
}

func (cb *CircuitBreaker) transitionToHalfOpenUnsafe() {
	old := cb.state
	cb.state = StateHalfOpen
	cb.lastStateChange = time.Now()
	cb.halfOpenCalls = 0
	cb.logger.Info("circuit breaker entering half-open", "previous_state", old)
	if cb.metrics != nil {
		cb.metrics.StateChanges.WithLabelValues(old.String(), "half_open").Inc()
		cb.metrics.State.Set(float64(StateHalfOpen))
	}
}

func (cb *CircuitBreaker) transitionToClosedUnsafe() {
	old := cb.state
	cb.state = StateClosed
	cb.lastStateChange = time.Now()
	cb.halfOpenCalls = 0
	cb.failureCount = 0
	cb.consecutiveFailures = 0
	cb.callResults = make([]callResult, 0, 100)
	cb.logger.Info("circuit breaker closed", "previous_state", old, "success_count", cb.successCount)
	if cb.metrics != nil {
		cb.metrics.StateChanges.WithLabelValues(old.String(), "closed").Inc()
		cb.metrics.State.Set(float64(StateClosed))
	}
}

func (cb *CircuitBreaker) cleanOldResultsUnsafe() {
	cutoff := time.Now().Add(-cb.timeWindow)
	firstValid := 0
	for i, r := range cb.callResults {
		if r.timestamp.After(cutoff) {
			firstValid = i
			break
		}
		cb.callResults[i] = callResult{}
	}
	if firstValid > 0 {
		cb.callResults = cb.callResults[firstValid:]
	}
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Stats is a point-in-time snapshot of breaker counters.
type Stats struct {
	State                CircuitState
	FailureCount         int
	SuccessCount         int
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	LastFailure          time.Time
	LastSuccess          time.Time
	LastStateChange      time.Time
	TotalCalls           int
	NextRetryAt          time.Time
}

func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	var nextRetryAt time.Time
	if cb.state == StateOpen {
		nextRetryAt = cb.lastStateChange.Add(cb.resetTimeout)
	}
	return Stats{
		State:                cb.state,
		FailureCount:         cb.failureCount,
		SuccessCount:         cb.successCount,
		ConsecutiveFailures:  cb.consecutiveFailures,
		ConsecutiveSuccesses: cb.consecutiveSuccesses,
		LastFailure:          cb.lastFailure,
		LastSuccess:          cb.lastSuccess,
		LastStateChange:      cb.lastStateChange,
		TotalCalls:           len(cb.callResults),
		NextRetryAt:          nextRetryAt,
	}
}

// Reset forces the breaker back to closed, for tests and manual
// operator intervention.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	old := cb.state
	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
	cb.halfOpenCalls = 0
	cb.callResults = make([]callResult, 0, 100)
	cb.lastStateChange = time.Now()
	cb.logger.Info("circuit breaker manually reset", "previous_state", old)
	if cb.metrics != nil {
		cb.metrics.State.Set(float64(StateClosed))
	}
}
