// Package datasource defines the query execution surface the analysis
// layer depends on. Implementations adapt a concrete database (PostgreSQL
// in this repo) to a small, dialect-agnostic contract.
package datasource

import "context"

// MaxQueryLimit is the hard cap on rows returned by Query regardless of
// the limit requested by the caller.
const MaxQueryLimit = 1000

// ColumnInfo describes a single column in a query result.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult contains the rows returned by an ad-hoc query.
type QueryResult struct {
	Columns  []ColumnInfo     `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// QueryExecutor runs SQL against the underlying database and returns rows
// as maps keyed by column name. Values are normalized to a stable set of
// Go types (nil, bool, int64, float64, string, time.Time, []any,
// map[string]any) so callers never handle driver-specific representations.
type QueryExecutor interface {
	// QueryOne runs a query expected to return at most one row.
	// Returns nil when the query produced no rows.
	QueryOne(ctx context.Context, query string, params ...any) (map[string]any, error)

	// QueryAll runs a query and returns every row.
	QueryAll(ctx context.Context, query string, params ...any) ([]map[string]any, error)

	// Query runs an ad-hoc statement with positional parameters. The
	// statement is always wrapped with a row limit; non-positive limits
	// fall back to MaxQueryLimit.
	Query(ctx context.Context, query string, params []any, limit int) (*QueryResult, error)

	// QuoteIdentifier quotes a table or column name for safe
	// interpolation into generated SQL.
	QuoteIdentifier(name string) string

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error
}
