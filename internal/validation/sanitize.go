package validation

import (
	"regexp"
	"strings"
)

var (
	// hexRunRegex matches runs of 32 or more hex characters, the shape of
	// leaked key material, digests, and HMAC values.
	hexRunRegex = regexp.MustCompile(`[0-9a-fA-F]{32,}`)

	// sensitiveFieldNames is the deny-list for structured log and audit
	// context. Matching is case-insensitive on the field name.
	sensitiveFieldNames = []string{
		"key",
		"password",
		"secret",
		"token",
		"encryptedkey",
		"masterkey",
	}
)

// SanitizeErrorMessage redacts values that must never reach logs or API
// responses: long hex runs and the tenant identifier itself. The result is
// safe to log verbatim.
func SanitizeErrorMessage(msg, tenantID string) string {
	out := hexRunRegex.ReplaceAllString(msg, "[REDACTED]")
	if tenantID != "" {
		out = strings.ReplaceAll(out, tenantID, "[TENANT]")
	}
	return out
}

// SafeContext returns a copy of ctx with sensitive fields dropped. The input
// map is never mutated.
func SafeContext(ctx map[string]string) map[string]string {
	if ctx == nil {
		return nil
	}
	out := make(map[string]string, len(ctx))
	for k, v := range ctx {
		if isSensitiveField(k) {
			continue
		}
		out[k] = v
	}
	return out
}

func isSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, denied := range sensitiveFieldNames {
		if lower == denied {
			return true
		}
	}
	return false
}
