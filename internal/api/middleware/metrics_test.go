package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsMiddleware_RecordsRequestsTotalByMethodEndpointStatus(t *testing.T) {
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/metrics-test-endpoint", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/metrics-test-endpoint", "418"))
	assert.GreaterOrEqual(t, got, float64(1))
}

func TestMetricsMiddleware_DefaultsStatusCodeToOKWhenHandlerNeverCallsWriteHeader(t *testing.T) {
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/metrics-implicit-status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/metrics-implicit-status", "200"))
	assert.GreaterOrEqual(t, got, float64(1))
}

func TestMetricsResponseWriter_TracksWrittenBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &metricsResponseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	n, err := rw.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, rw.size)
}

func TestNormalizeEndpoint_ReturnsPathUnchanged(t *testing.T) {
	assert.Equal(t, "/v1/check", normalizeEndpoint("/v1/check"))
}
