package audit

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/vitaliisemenov/guardrail-engine/internal/guardrails"
)

// redact replaces PII in text with the fixed "[REDACTED:...]" token
// (via guardrails.Redact, the same catalog the Pattern-PII detector
// uses) and returns a one-way SHA-256 hash of each removed value so an
// investigator can correlate two redacted events without the original
// value ever touching the sink, per spec.md §4.5.
func redact(text string) (redactedText string, hashes []string) {
	redactedText, removed := guardrails.Redact(text)
	hashes = make([]string, len(removed))
	for i, r := range removed {
		sum := sha256.Sum256([]byte(r))
		hashes[i] = hex.EncodeToString(sum[:])
	}
	return redactedText, hashes
}
