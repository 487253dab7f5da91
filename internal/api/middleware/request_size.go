package middleware

import (
	"log/slog"
	"net/http"

	apierrors "github.com/vitaliisemenov/guardrail-engine/internal/api/errors"
)

// RequestSizeLimiter enforces a hard cap on request body size, on top of
// ValidationMiddleware's Content-Length header check: it wraps the body
// in an http.MaxBytesReader so a handler reading a request whose
// Content-Length header lied (or was absent) still can't exhaust memory
// decoding a long guardrail check payload.
type RequestSizeLimiter struct {
	maxSize int64
	logger  *slog.Logger
}

// NewRequestSizeLimiter builds a limiter capping bodies at maxSize bytes.
func NewRequestSizeLimiter(maxSize int64, logger *slog.Logger) *RequestSizeLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestSizeLimiter{maxSize: maxSize, logger: logger}
}

// Middleware returns the http.Handler wrapper.
func (r *RequestSizeLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.ContentLength > r.maxSize {
				r.logger.Warn("request body too large",
					"content_length", req.ContentLength,
					"max_size", r.maxSize,
					"path", req.URL.Path)
				apierrors.WriteError(w, apierrors.ValidationError("request body too large"))
				return
			}
			req.Body = http.MaxBytesReader(w, req.Body, r.maxSize)
			next.ServeHTTP(w, req)
		})
	}
}
