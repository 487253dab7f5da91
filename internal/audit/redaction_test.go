package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedact_MasksEmailAndReturnsHash(t *testing.T) {
	text, hashes := redact("contact me at jane@example.com please")

	assert.NotContains(t, text, "jane@example.com")
	assert.Contains(t, text, "[REDACTED:")
	require.Len(t, hashes, 1)

	sum := sha256.Sum256([]byte("jane@example.com"))
	assert.Equal(t, hex.EncodeToString(sum[:]), hashes[0])
}

func TestRedact_CleanTextReturnsNoHashes(t *testing.T) {
	text, hashes := redact("nothing sensitive here")

	assert.Equal(t, "nothing sensitive here", text)
	assert.Empty(t, hashes)
}

func TestRedact_HashNeverContainsOriginalValue(t *testing.T) {
	_, hashes := redact("card 4111 1111 1111 1111 was charged")

	require.Len(t, hashes, 1)
	assert.NotContains(t, hashes[0], "4111")
}
