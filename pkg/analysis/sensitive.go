package analysis

import (
	"regexp"
	"strings"
)

// RedactedValue replaces sensitive values in analysis output.
const RedactedValue = "[REDACTED]"

// SensitiveDetector identifies and redacts sensitive data in column names
// and content. It uses configurable regex patterns to detect secrets like
// API keys, passwords, and tokens.
type SensitiveDetector struct {
	columnPatterns  []*regexp.Regexp // patterns for column names
	contentPatterns []*regexp.Regexp // patterns for JSON keys in content
}

// defaultColumnPatterns returns regex patterns to detect sensitive column
// names. All patterns are case-insensitive.
func defaultColumnPatterns() []*regexp.Regexp {
	patterns := []string{
		`(?i)(api[_-]?key|apikey)`,
		`(?i)(api[_-]?secret|apisecret)`,
		`(?i)(password|passwd|pwd)`,
		`(?i)(secret[_-]?key|secretkey)`,
		`(?i)(access[_-]?token|accesstoken)`,
		`(?i)(auth[_-]?token|authtoken)`,
		`(?i)(private[_-]?key|privatekey)`,
		`(?i)(credential|cred)`,
		`(?i)(bearer[_-]?token)`,
		`(?i)(client[_-]?secret)`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// sensitiveJSONKeyPattern matches JSON key-value pairs whose key indicates
// sensitive data, capturing enough to replace just the value.
var sensitiveJSONKeyPattern = regexp.MustCompile(`(?i)"(api_key|api_secret|password|token|secret|credential|private_key|access_token|auth_token|bearer_token|client_secret)"\s*:\s*"[^"]*"`)

// defaultContentPatterns returns regex patterns to detect sensitive keys in
// JSON content.
func defaultContentPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{sensitiveJSONKeyPattern}
}

// NewSensitiveDetector creates a new detector with default patterns.
func NewSensitiveDetector() *SensitiveDetector {
	return &SensitiveDetector{
		columnPatterns:  defaultColumnPatterns(),
		contentPatterns: defaultContentPatterns(),
	}
}

// NewSensitiveDetectorWithPatterns creates a detector with custom patterns.
// If columnPatterns or contentPatterns is nil, defaults are used.
func NewSensitiveDetectorWithPatterns(columnPatterns, contentPatterns []*regexp.Regexp) *SensitiveDetector {
	d := &SensitiveDetector{
		columnPatterns:  columnPatterns,
		contentPatterns: contentPatterns,
	}
	if d.columnPatterns == nil {
		d.columnPatterns = defaultColumnPatterns()
	}
	if d.contentPatterns == nil {
		d.contentPatterns = defaultContentPatterns()
	}
	return d
}

// IsSensitiveColumn checks if a column name matches any sensitive pattern.
// Sampled values of matching columns are redacted before they leave the
// analysis layer; counts and frequencies are kept.
func (d *SensitiveDetector) IsSensitiveColumn(columnName string) bool {
	for _, pattern := range d.columnPatterns {
		if pattern.MatchString(columnName) {
			return true
		}
	}
	return false
}

// IsSensitiveContent checks if content contains any sensitive patterns.
func (d *SensitiveDetector) IsSensitiveContent(content string) bool {
	for _, pattern := range d.contentPatterns {
		if pattern.MatchString(content) {
			return true
		}
	}
	return false
}

// RedactContent replaces sensitive values in JSON content, keeping the key
// and replacing only the value portion.
func (d *SensitiveDetector) RedactContent(content string) string {
	if content == "" {
		return content
	}

	return sensitiveJSONKeyPattern.ReplaceAllStringFunc(content, func(match string) string {
		colonIdx := strings.Index(match, ":")
		if colonIdx == -1 {
			return match
		}
		return match[:colonIdx+1] + `"` + RedactedValue + `"`
	})
}

// DefaultSensitiveDetector is a singleton detector instance with default
// patterns.
var DefaultSensitiveDetector = NewSensitiveDetector()
