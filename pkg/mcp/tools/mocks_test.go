package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/statlens/statlens-engine/pkg/datasource"
)

// fakeExecutor serves canned rows for queries matched by substring. Rules
// are checked in order and the first match wins; an unmatched query fails
// the call so tests notice unexpected SQL.
type fakeExecutor struct {
	rules   []queryRule
	queries []string
	params  [][]any
	limits  []int
	pingErr error
}

type queryRule struct {
	contains string
	row      map[string]any          // QueryOne response
	rows     []map[string]any        // QueryAll and Query response
	columns  []datasource.ColumnInfo // Query column metadata
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

// Query mirrors the real executor's limit handling: out-of-range limits
// are clamped to the hard cap and rows are sliced to the effective limit.
func (f *fakeExecutor) Query(ctx context.Context, query string, params []any, limit int) (*datasource.QueryResult, error) {
	f.limits = append(f.limits, limit)
	rule, err := f.match(query, params)
	if err != nil {
		return nil, err
	}
	if rule.err != nil {
		return nil, rule.err
	}
	if limit <= 0 || limit > datasource.MaxQueryLimit {
		limit = datasource.MaxQueryLimit
	}
	rows := rule.rows
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return &datasource.QueryResult{
		Columns:  rule.columns,
		Rows:     rows,
		RowCount: len(rows),
	}, nil
}

func (f *fakeExecutor) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (f *fakeExecutor) Ping(ctx context.Context) error { return f.pingErr }

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

// schemaRow builds a canned information_schema.columns row.
func schemaRow(name, dataType, nullable string, position int64) map[string]any {
	return map[string]any{
		"column_name":      name,
		"data_type":        dataType,
		"is_nullable":      nullable,
		"ordinal_position": position,
	}
}

// newTestServer builds an MCP server the way tests need it: capabilities
// on, nothing else.
func newTestServer() *server.MCPServer {
	return server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
}

// callTool executes an MCP tool via the server's HandleMessage method.
func callTool(t *testing.T, s *server.MCPServer, toolName string, arguments map[string]any) (*mcp.CallToolResult, error) {
	t.Helper()

	callReq := map[string]any{
		"jsonrpc": "2.0",
		"method":  "tools/call",
		"id":      1,
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	}

	reqBytes, err := json.Marshal(callReq)
	require.NoError(t, err)

	result := s.HandleMessage(context.Background(), reqBytes)

	resultBytes, err := json.Marshal(result)
	require.NoError(t, err)

	var response struct {
		Result *mcp.CallToolResult `json:"result,omitempty"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}
	err = json.Unmarshal(resultBytes, &response)
	require.NoError(t, err)

	if response.Error != nil {
		return nil, &mcpError{Code: response.Error.Code, Message: response.Error.Message}
	}

	return response.Result, nil
}

// mcpError represents an MCP JSON-RPC error.
type mcpError struct {
	Code    int
	Message string
}

func (e *mcpError) Error() string {
	return e.Message
}

// listToolNames returns the names of all tools registered on the server.
func listToolNames(t *testing.T, s *server.MCPServer) []string {
	t.Helper()

	result := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`))
	resultBytes, err := json.Marshal(result)
	require.NoError(t, err)

	var response struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(resultBytes, &response))

	names := make([]string, 0, len(response.Result.Tools))
	for _, tool := range response.Result.Tools {
		names = append(names, tool.Name)
	}
	return names
}

// toolEnvelope mirrors the analysis result envelope with a raw payload so
// tests can decode results into the concrete report types.
type toolEnvelope struct {
	AnalysisType string          `json:"analysis_type"`
	TableName    string          `json:"table_name"`
	ColumnName   *string         `json:"column_name"`
	Timestamp    time.Time       `json:"timestamp"`
	Results      json.RawMessage `json:"results"`
}

// decodeEnvelope asserts the call succeeded and unpacks its envelope.
func decodeEnvelope(t *testing.T, result *mcp.CallToolResult) toolEnvelope {
	t.Helper()

	require.NotNil(t, result)
	require.False(t, result.IsError, "expected success, got error result: %s", getTextContent(result))

	var env toolEnvelope
	require.NoError(t, json.Unmarshal([]byte(getTextContent(result)), &env))
	return env
}

// decodeError asserts the call failed with a structured error and unpacks it.
func decodeError(t *testing.T, result *mcp.CallToolResult) ErrorResponse {
	t.Helper()

	require.NotNil(t, result)
	require.True(t, result.IsError, "expected error result, got: %s", getTextContent(result))

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(getTextContent(result)), &errResp))
	return errResp
}
