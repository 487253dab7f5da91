package cache

import (
	"context"
	"errors"
	"time"
)

// Cache is the L2 cache contract that TwoTier (twotier.go) fronts with an
// in-process LRU. Redis is the only production implementation; tests
// substitute miniredis. The model-assisted guardrail
// (internal/guardrails/model_assisted.go) builds its TwoTier without an
// L2, so no Cache backs its classification cache.
type Cache interface {
	// Get fetches the value at key and decodes it into dest.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores value at key with the given TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes the value at key, if any.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// TTL returns the remaining time-to-live for key.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Expire sets a new TTL on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// HealthCheck reports whether the cache backend is reachable and
	// usable, feeding internal/health's dependency snapshot.
	HealthCheck(ctx context.Context) error

	// Ping checks connectivity only.
	Ping(ctx context.Context) error

	// Flush clears every key. Used by tests only.
	Flush(ctx context.Context) error
}

// Stats is a point-in-time counter snapshot, surfaced through
// internal/health when the cache backend supports it.
type Stats struct {
	Hits        int64
	Misses      int64
	Sets        int64
	Deletes     int64
	Errors      int64
	Connections int
	Uptime      time.Duration
}

// Config configures a Redis-backed Cache.
type Config struct {
	Addr     string `env:"REDIS_ADDR" default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" default:""`
	DB       int    `env:"REDIS_DB" default:"0"`

	PoolSize     int           `env:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" default:"1"`
	MaxConnAge   time.Duration `env:"REDIS_MAX_CONN_AGE" default:"30m"`

	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" default:"3s"`

	MaxRetries      int           `env:"REDIS_MAX_RETRIES" default:"3"`
	MinRetryBackoff time.Duration `env:"REDIS_MIN_RETRY_BACKOFF" default:"8ms"`
	MaxRetryBackoff time.Duration `env:"REDIS_MAX_RETRY_BACKOFF" default:"512ms"`

	CircuitBreakerEnabled bool          `env:"REDIS_CIRCUIT_BREAKER_ENABLED" default:"true"`
	CircuitBreakerTimeout time.Duration `env:"REDIS_CIRCUIT_BREAKER_TIMEOUT" default:"10s"`

	MetricsEnabled bool `env:"REDIS_METRICS_ENABLED" default:"true"`
}

// Validate checks the configuration for obviously broken values.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return ErrInvalidConfig
	}
	if c.PoolSize <= 0 {
		return ErrInvalidConfig
	}
	if c.DialTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

var (
	// ErrNotFound is returned when a key has no cached value.
	ErrNotFound = NewCacheError("key not found", "NOT_FOUND")

	// ErrInvalidConfig is returned when a Config fails Validate.
	ErrInvalidConfig = NewCacheError("invalid cache configuration", "CONFIG_ERROR")

	// ErrConnectionFailed is returned when the backend is unreachable.
	ErrConnectionFailed = NewCacheError("connection failed", "CONNECTION_ERROR")
)

// CacheError wraps a cache operation failure with a stable code so
// callers can classify failures without string matching.
type CacheError struct {
	Message string
	Code    string
	Cause   error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *CacheError) Unwrap() error { return e.Cause }

// NewCacheError builds a CacheError with no wrapped cause.
func NewCacheError(message, code string) *CacheError {
	return &CacheError{Message: message, Code: code}
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	var ce *CacheError
	if ok := asCacheError(err, &ce); ok {
		return ce.Code == "NOT_FOUND"
	}
	return false
}

// IsConnectionError reports whether err is (or wraps) a connection
// failure.
func IsConnectionError(err error) bool {
	var ce *CacheError
	if ok := asCacheError(err, &ce); ok {
		return ce.Code == "CONNECTION_ERROR"
	}
	return false
}

func asCacheError(err error, target **CacheError) bool {
	return errors.As(err, target)
}
