// Package sql provides validation guards applied to SQL text and query
// parameters before they reach the database.
package sql

import (
	"errors"
	"strings"
)

// ErrMultipleStatements indicates the query contains more than one SQL statement.
var ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

// ValidationResult contains the normalized SQL and any validation error.
type ValidationResult struct {
	NormalizedSQL string
	Error         error
}

// ValidateAndNormalize trims the query, strips one trailing semicolon, and
// rejects input that still contains a statement separator. Semicolons inside
// single-quoted strings, double-quoted identifiers, line comments, and block
// comments do not count as separators.
func ValidateAndNormalize(sqlQuery string) ValidationResult {
	sqlQuery = strings.TrimSpace(sqlQuery)
	if sqlQuery == "" {
		return ValidationResult{NormalizedSQL: sqlQuery}
	}

	normalized := stripTrailingSemicolon(sqlQuery)
	if containsStatementSeparator(normalized) {
		return ValidationResult{Error: ErrMultipleStatements}
	}

	return ValidationResult{NormalizedSQL: normalized}
}

// containsStatementSeparator reports whether the query holds a semicolon
// outside of quoted regions and comments. The trailing semicolon has already
// been stripped, so any hit means a second statement follows.
func containsStatementSeparator(sqlQuery string) bool {
	runes := []rune(sqlQuery)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case ';':
			return true
		case '\'':
			i = skipQuoted(runes, i, '\'')
		case '"':
			i = skipQuoted(runes, i, '"')
		case '-':
			if i+1 < len(runes) && runes[i+1] == '-' {
				i = skipLineComment(runes, i)
			}
		case '/':
			if i+1 < len(runes) && runes[i+1] == '*' {
				i = skipBlockComment(runes, i)
			}
		}
	}
	return false
}

// skipQuoted advances past a quoted region starting at start. Both the SQL
// standard doubled-quote escape ('') and backslash escapes are honored.
// Returns the index of the closing quote, or the last index when unterminated.
func skipQuoted(runes []rune, start int, quote rune) int {
	for i := start + 1; i < len(runes); i++ {
		switch runes[i] {
		case '\\':
			i++
		case quote:
			if i+1 < len(runes) && runes[i+1] == quote {
				i++
				continue
			}
			return i
		}
	}
	return len(runes) - 1
}

func skipLineComment(runes []rune, start int) int {
	for i := start + 2; i < len(runes); i++ {
		if runes[i] == '\n' {
			return i
		}
	}
	return len(runes) - 1
}

func skipBlockComment(runes []rune, start int) int {
	for i := start + 2; i+1 < len(runes); i++ {
		if runes[i] == '*' && runes[i+1] == '/' {
			return i + 1
		}
	}
	return len(runes) - 1
}

// stripTrailingSemicolon removes one trailing semicolon plus surrounding whitespace.
func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimRight(strings.TrimSuffix(sqlQuery, ";"), " \t\n\r")
	}
	return sqlQuery
}
