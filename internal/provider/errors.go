// Package provider talks to an external classifier service on behalf of
// a model-assisted guardrail (internal/guardrails/model_assisted.go).
// It is the generalized form of a single upstream dependency call: HTTP
// request out, verdict back, with the same retryable/non-retryable error
// classification regardless of which provider is configured.
package provider

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

var (
	// ErrInvalidRequest is returned when a Content cannot be encoded
	// into a provider request.
	ErrInvalidRequest = errors.New("provider: invalid request")

	// ErrInvalidResponse is returned when a provider response cannot be
	// decoded into a Verdict.
	ErrInvalidResponse = errors.New("provider: invalid response")
)

// HTTPError is a non-2xx response from a provider.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("provider: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable classifies a provider call error for internal/resilience's
// retry policy: HTTP 429 and 5xx are retryable, other HTTP statuses and
// invalid request/response errors are not, and any other error is
// retryable when it looks like a transient network failure or a timeout.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrInvalidResponse) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == 429 {
			return true
		}
		if httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
			return false
		}
		return httpErr.StatusCode >= 500
	}
	return isTransientNetworkError(err)
}

func isTransientNetworkError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary()
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) || errors.Is(opErr.Err, syscall.ECONNRESET) || errors.Is(opErr.Err, syscall.ENETUNREACH) {
			return true
		}
	}
	if isTimeoutError(err) {
		return true
	}
	type temporary interface{ Temporary() bool }
	if te, ok := err.(temporary); ok {
		return te.Temporary()
	}
	return false
}

func isTimeoutError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, indicator := range []string{"timeout", "deadline exceeded", "i/o timeout"} {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	type timeout interface{ Timeout() bool }
	if te, ok := err.(timeout); ok {
		return te.Timeout()
	}
	return false
}

// Classify labels an error for metrics, mirroring
// internal/resilience's classification but scoped to provider calls.
func Classify(err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	if errors.Is(err, ErrInvalidResponse) {
		return "invalid_response"
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == 429:
			return "rate_limit"
		case httpErr.StatusCode >= 500:
			return "server_error"
		case httpErr.StatusCode >= 400:
			return "client_error"
		}
	}
	if isTimeoutError(err) {
		return "timeout"
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return "network_error"
	}
	return "unknown_error"
}
