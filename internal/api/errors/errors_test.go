package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAPIError_SetsTimestampInRFC3339(t *testing.T) {
	err := NewAPIError(CodeValidationError, "bad input")
	assert.Equal(t, CodeValidationError, err.Code)
	assert.Equal(t, "bad input", err.Message)
	_, parseErr := time.Parse(time.RFC3339, err.Timestamp)
	assert.NoError(t, parseErr)
}

func TestAPIError_BuilderMethodsMutateAndReturnSameInstance(t *testing.T) {
	err := NewAPIError(CodeValidationError, "bad input")

	same := err.WithDetails(map[string]string{"field": "text"}).
		WithRequestID("req-1").
		WithDocumentationURL("https://docs.example.com/errors/validation")

	require.Same(t, err, same)
	assert.Equal(t, map[string]string{"field": "text"}, err.Details)
	assert.Equal(t, "req-1", err.RequestID)
	assert.Equal(t, "https://docs.example.com/errors/validation", err.DocumentationURL)
}

func TestAPIError_StatusCode_MapsEachKnownCode(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{CodeValidationError, http.StatusBadRequest},
		{CodeAuthenticationError, http.StatusUnauthorized},
		{CodeAuthorizationError, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeRateLimitExceeded, http.StatusTooManyRequests},
		{CodeInternalError, http.StatusInternalServerError},
		{CodeLLMError, http.StatusBadGateway},
		{CodeServiceUnavailable, http.StatusServiceUnavailable},
		{CodeTargetUnavailable, http.StatusServiceUnavailable},
		{CodeHealthCheckFailed, http.StatusServiceUnavailable},
		{CodeClassificationTimeout, http.StatusGatewayTimeout},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			err := NewAPIError(tc.code, "x")
			assert.Equal(t, tc.want, err.StatusCode())
		})
	}
}

func TestAPIError_StatusCode_UnknownCodeDefaultsToInternalServerError(t *testing.T) {
	err := NewAPIError(ErrorCode("SOMETHING_MADE_UP"), "x")
	assert.Equal(t, http.StatusInternalServerError, err.StatusCode())
}

func TestAPIError_Error_FormatsCodeAndMessage(t *testing.T) {
	err := NewAPIError(CodeNotFound, "conversation abc not found")
	assert.Equal(t, "[NOT_FOUND] conversation abc not found", err.Error())
}

func TestWriteError_WritesJSONBodyWithStatusCode(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ValidationError("text is required").WithRequestID("req-7"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeValidationError, body.Error.Code)
	assert.Equal(t, "text is required", body.Error.Message)
	assert.Equal(t, "req-7", body.Error.RequestID)
}

func TestValidationError_UsesValidationCode(t *testing.T) {
	err := ValidationError("missing field")
	assert.Equal(t, CodeValidationError, err.Code)
	assert.Equal(t, "missing field", err.Message)
}

func TestAuthenticationError_UsesAuthenticationCode(t *testing.T) {
	err := AuthenticationError("missing credentials")
	assert.Equal(t, CodeAuthenticationError, err.Code)
}

func TestAuthorizationError_UsesAuthorizationCode(t *testing.T) {
	err := AuthorizationError("insufficient role")
	assert.Equal(t, CodeAuthorizationError, err.Code)
}

func TestNotFoundError_IncludesResourceNameInMessage(t *testing.T) {
	err := NotFoundError("conversation abc")
	assert.Equal(t, CodeNotFound, err.Code)
	assert.Equal(t, "conversation abc not found", err.Message)
}

func TestConflictError_UsesConflictCode(t *testing.T) {
	err := ConflictError("guardrail already exists")
	assert.Equal(t, CodeConflict, err.Code)
}

func TestRateLimitError_UsesRateLimitCodeAndFixedMessage(t *testing.T) {
	err := RateLimitError()
	assert.Equal(t, CodeRateLimitExceeded, err.Code)
	assert.NotEmpty(t, err.Message)
}

func TestInternalError_UsesInternalCode(t *testing.T) {
	err := InternalError("unexpected nil pipeline")
	assert.Equal(t, CodeInternalError, err.Code)
}

func TestServiceUnavailableError_IncludesServiceNameInMessage(t *testing.T) {
	err := ServiceUnavailableError("model-assisted provider")
	assert.Equal(t, CodeServiceUnavailable, err.Code)
	assert.Contains(t, err.Message, "model-assisted provider")
}

func TestTargetUnavailableError_IncludesTargetNameInMessage(t *testing.T) {
	err := TargetUnavailableError("claude-classifier")
	assert.Equal(t, CodeTargetUnavailable, err.Code)
	assert.Contains(t, err.Message, "claude-classifier")
}

func TestClassificationTimeoutError_UsesClassificationTimeoutCode(t *testing.T) {
	err := ClassificationTimeoutError()
	assert.Equal(t, CodeClassificationTimeout, err.Code)
}

func TestLLMError_IncludesUnderlyingMessage(t *testing.T) {
	err := LLMError("upstream returned malformed JSON")
	assert.Equal(t, CodeLLMError, err.Code)
	assert.Contains(t, err.Message, "upstream returned malformed JSON")
}
