package sql

import (
	"fmt"
	"regexp"
)

// maxIdentifierLength mirrors PostgreSQL's NAMEDATALEN-1 limit.
const maxIdentifierLength = 63

// identifierPattern matches unquoted PostgreSQL identifiers: a leading
// letter or underscore followed by letters, digits, or underscores.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateTableName checks that name is a well-formed PostgreSQL table name.
// Returned errors are user-facing; callers surface them verbatim.
func ValidateTableName(name string) error {
	return validateIdentifier("table name", name)
}

// ValidateColumnName checks that name is a well-formed PostgreSQL column name.
func ValidateColumnName(name string) error {
	return validateIdentifier("column name", name)
}

// ValidateSchemaName checks that name is a well-formed PostgreSQL schema name.
func ValidateSchemaName(name string) error {
	return validateIdentifier("schema name", name)
}

func validateIdentifier(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s must be a non-empty string", kind)
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid %s format: %s", kind, name)
	}
	if len(name) > maxIdentifierLength {
		return fmt.Errorf("%s too long (max %d characters): %s", kind, maxIdentifierLength, name)
	}
	return nil
}
