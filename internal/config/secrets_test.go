package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandSecrets_ReplacesKnownEnvVar(t *testing.T) {
	t.Setenv("GUARDRAIL_TEST_API_KEY", "sk-12345")
	out := expandSecrets([]byte(`{"api_key": "${GUARDRAIL_TEST_API_KEY}"}`))
	assert.Equal(t, `{"api_key": "sk-12345"}`, string(out))
}

func TestExpandSecrets_LeavesUnknownPlaceholderUntouched(t *testing.T) {
	out := expandSecrets([]byte(`{"api_key": "${GUARDRAIL_TEST_DOES_NOT_EXIST}"}`))
	assert.Equal(t, `{"api_key": "${GUARDRAIL_TEST_DOES_NOT_EXIST}"}`, string(out))
}

func TestExpandSecrets_LeavesTextWithoutPlaceholdersUnchanged(t *testing.T) {
	out := expandSecrets([]byte(`{"name": "basic"}`))
	assert.Equal(t, `{"name": "basic"}`, string(out))
}

func TestExpandSecrets_ExpandsMultiplePlaceholders(t *testing.T) {
	t.Setenv("GUARDRAIL_TEST_A", "one")
	t.Setenv("GUARDRAIL_TEST_B", "two")
	out := expandSecrets([]byte(`${GUARDRAIL_TEST_A}-${GUARDRAIL_TEST_B}`))
	assert.Equal(t, "one-two", string(out))
}
