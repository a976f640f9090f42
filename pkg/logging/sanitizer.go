// Package logging provides redaction helpers applied to values before they
// reach log output.
package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength caps SQL text in log fields.
	MaxQueryLogLength = 100
	// RedactedText replaces sensitive data.
	RedactedText = "[REDACTED]"
)

type redaction struct {
	pattern     *regexp.Regexp
	replacement string
}

var (
	// password=xxx, pwd=xxx, pass=xxx up to the next delimiter
	passwordRedaction = redaction{
		pattern:     regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`),
		replacement: "${1}=" + RedactedText,
	}
	// bearer tokens: three base64url segments joined by dots
	bearerRedaction = redaction{
		pattern:     regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`),
		replacement: "Bearer " + RedactedText,
	}
	// api_key=... style credentials
	apiKeyRedaction = redaction{
		pattern:     regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`),
		replacement: "${1}=" + RedactedText,
	}
	// user:pass@host inside URL-style connection strings
	credentialURLRedaction = redaction{
		pattern:     regexp.MustCompile(`://[^:]+:[^@]+@[^/\s]+`),
		replacement: "://" + RedactedText + "@" + RedactedText,
	}
)

func applyRedactions(s string, redactions ...redaction) string {
	for _, r := range redactions {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}

// SanitizeConnectionString redacts credentials from a DSN before logging.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	return applyRedactions(connStr, passwordRedaction, credentialURLRedaction)
}

// SanitizeError redacts error text that may embed credentials, tokens, or
// connection strings. Database driver errors often echo the DSN back.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return applyRedactions(err.Error(),
		passwordRedaction, bearerRedaction, apiKeyRedaction, credentialURLRedaction)
}

// SanitizeQuery truncates SQL for logging and redacts credential-shaped text.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}
	sanitized := TruncateString(query, MaxQueryLogLength)
	return applyRedactions(sanitized, passwordRedaction, apiKeyRedaction)
}

// TruncateString shortens s to maxLen, appending an ellipsis when truncated.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
