package analysis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/statlens/statlens-engine/pkg/datasource"
)

// fakeExecutor serves canned rows for queries matched by substring. Rules
// are checked in order and the first match wins; an unmatched query fails
// the call so tests notice unexpected SQL.
type fakeExecutor struct {
	rules   []queryRule
	queries []string
	params  [][]any
}

type queryRule struct {
	contains string
	row      map[string]any   // QueryOne response
	rows     []map[string]any // QueryAll response
	err      error
}

func (f *fakeExecutor) match(query string, params []any) (*queryRule, error) {
	f.queries = append(f.queries, query)
	f.params = append(f.params, params)
	for i := range f.rules {
		if strings.Contains(query, f.rules[i].contains) {
			return &f.rules[i], nil
		}
	}
	return nil, fmt.Errorf("no canned response for query: %s", query)
}

func (f *fakeExecutor) QueryOne(ctx context.Context, query string, params ...any) (map[string]any, error) {
	rule, err := f.match(query, params)
	if err != nil {
		return nil, err
	}
	if rule.err != nil {
		return nil, rule.err
	}
	return rule.row, nil
}

func (f *fakeExecutor) QueryAll(ctx context.Context, query string, params ...any) ([]map[string]any, error) {
	rule, err := f.match(query, params)
	if err != nil {
		return nil, err
	}
	if rule.err != nil {
		return nil, rule.err
	}
	return rule.rows, nil
}

func (f *fakeExecutor) Query(ctx context.Context, query string, params []any, limit int) (*datasource.QueryResult, error) {
	rows, err := f.QueryAll(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	return &datasource.QueryResult{Rows: rows, RowCount: len(rows)}, nil
}

func (f *fakeExecutor) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (f *fakeExecutor) Ping(ctx context.Context) error { return nil }

var _ datasource.QueryExecutor = (*fakeExecutor)(nil)

// queryMatching returns the first executed query containing substr, or ""
// when none did.
func (f *fakeExecutor) queryMatching(substr string) string {
	for _, q := range f.queries {
		if strings.Contains(q, substr) {
			return q
		}
	}
	return ""
}

func newTestService(rules ...queryRule) (*Service, *fakeExecutor) {
	executor := &fakeExecutor{rules: rules}
	return NewService(executor, zap.NewNop(), DefaultLimits()), executor
}

// Canned information_schema rows shared across tests.

func schemaRow(name, dataType, nullable string, position int64) map[string]any {
	return map[string]any{
		"column_name":      name,
		"data_type":        dataType,
		"is_nullable":      nullable,
		"ordinal_position": position,
	}
}
