package config

import (
	"os"
	"regexp"
)

// envPlaceholder matches "${VAR_NAME}" in a raw document, the same
// environment-substitution convention the teacher's config.go expects
// Viper to resolve for fields like api_key and database URLs.
var envPlaceholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandSecrets replaces every "${VAR}" in raw with the value of the
// matching environment variable, leaving the placeholder untouched if
// the variable isn't set (a missing secret should fail schema/semantic
// validation on the resulting empty field, not fail silently here).
func expandSecrets(raw []byte) []byte {
	return envPlaceholder.ReplaceAllFunc(raw, func(match []byte) []byte {
		name := envPlaceholder.FindSubmatch(match)[1]
		if v, ok := os.LookupEnv(string(name)); ok {
			return []byte(v)
		}
		return match
	})
}

// redactSecret is a fixed replacement token for an API key in log
// output, matching the teacher's sanitizer.go redaction value. Nothing
// in the module references it; internal/audit redacts PII with the
// guardrails.Redact tokens instead.
const redactSecret = "***REDACTED***"
