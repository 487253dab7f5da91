package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate_RejectsEmptyAddr(t *testing.T) {
	c := &Config{Addr: "", PoolSize: 1, DialTimeout: time.Second}
	assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
}

func TestConfig_Validate_RejectsNonPositivePoolSize(t *testing.T) {
	c := &Config{Addr: "localhost:6379", PoolSize: 0, DialTimeout: time.Second}
	assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
}

func TestConfig_Validate_RejectsNonPositiveDialTimeout(t *testing.T) {
	c := &Config{Addr: "localhost:6379", PoolSize: 1, DialTimeout: 0}
	assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
}

func TestConfig_Validate_AcceptsWellFormedConfig(t *testing.T) {
	c := &Config{Addr: "localhost:6379", PoolSize: 10, DialTimeout: 5 * time.Second}
	assert.NoError(t, c.Validate())
}

func TestCacheError_ErrorIncludesCauseWhenPresent(t *testing.T) {
	err := &CacheError{Message: "write failed", Code: "X", Cause: errors.New("disk full")}
	assert.Equal(t, "write failed: disk full", err.Error())
	assert.Equal(t, "write failed", (&CacheError{Message: "write failed", Code: "X"}).Error())
}

func TestCacheError_Unwrap(t *testing.T) {
	cause := errors.New("root")
	err := &CacheError{Message: "m", Cause: cause}
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestIsNotFound_TrueOnlyForNotFoundCode(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound))
	assert.False(t, IsNotFound(ErrConnectionFailed))
	assert.False(t, IsNotFound(errors.New("plain error")))
}

func TestIsConnectionError_TrueOnlyForConnectionErrorCode(t *testing.T) {
	assert.True(t, IsConnectionError(ErrConnectionFailed))
	assert.False(t, IsConnectionError(ErrNotFound))
}
