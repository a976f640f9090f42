package tools

import (
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/statlens/statlens-engine/pkg/analysis"
)

func newSchemaServer(rules ...queryRule) (*server.MCPServer, *fakeExecutor) {
	executor := &fakeExecutor{rules: rules}
	s := newTestServer()
	RegisterSchemaTools(s, &SchemaToolDeps{
		Executor: executor,
		Logger:   zap.NewNop(),
	})
	return s, executor
}

// TestRegisterSchemaTools verifies both schema tools are registered.
func TestRegisterSchemaTools(t *testing.T) {
	s, _ := newSchemaServer()

	names := listToolNames(t, s)
	assert.Contains(t, names, "list_tables")
	assert.Contains(t, names, "describe_table")
}

func TestListTablesTool(t *testing.T) {
	s, executor := newSchemaServer(
		queryRule{
			contains: "pg_total_relation_size",
			rows: []map[string]any{
				{
					"table_name":     "orders",
					"table_type":     "BASE TABLE",
					"table_schema":   "public",
					"size_bytes":     int64(81920),
					"size_human":     "80 kB",
					"estimated_rows": int64(1200),
				},
			},
		},
	)

	result, err := callTool(t, s, "list_tables", map[string]any{})
	require.NoError(t, err)
	require.False(t, result.IsError, "unexpected error: %s", getTextContent(result))

	var response struct {
		Schema     string                  `json:"schema"`
		Tables     []analysis.TableSummary `json:"tables"`
		TableCount int                     `json:"table_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(getTextContent(result)), &response))

	assert.Equal(t, "public", response.Schema, "schema defaults to public")
	assert.Equal(t, 1, response.TableCount)
	require.Len(t, response.Tables, 1)

	table := response.Tables[0]
	assert.Equal(t, "orders", table.Name)
	assert.Equal(t, "BASE TABLE", table.Type)
	require.NotNil(t, table.SizeBytes)
	assert.Equal(t, int64(81920), *table.SizeBytes)
	require.NotNil(t, table.EstimatedRows)
	assert.Equal(t, int64(1200), *table.EstimatedRows)

	require.Len(t, executor.params, 1)
	assert.Equal(t, []any{"public"}, executor.params[0])
}

func TestListTablesTool_CustomSchema(t *testing.T) {
	s, executor := newSchemaServer(
		queryRule{contains: "pg_total_relation_size", rows: nil},
	)

	result, err := callTool(t, s, "list_tables", map[string]any{"schema": "reporting"})
	require.NoError(t, err)
	require.False(t, result.IsError)

	var response struct {
		Schema     string `json:"schema"`
		TableCount int    `json:"table_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(getTextContent(result)), &response))

	assert.Equal(t, "reporting", response.Schema)
	assert.Equal(t, 0, response.TableCount, "empty schema is a valid, empty result")
	require.Len(t, executor.params, 1)
	assert.Equal(t, []any{"reporting"}, executor.params[0])
}

func TestListTablesTool_InvalidSchema(t *testing.T) {
	s, executor := newSchemaServer()

	result, err := callTool(t, s, "list_tables", map[string]any{
		"schema": "public; DROP SCHEMA public",
	})
	require.NoError(t, err)

	errResp := decodeError(t, result)
	assert.Equal(t, CodeValidationError, errResp.Error.Code)
	assert.Contains(t, errResp.Error.Message, "invalid schema name format")
	assert.Empty(t, executor.queries)
}

func TestDescribeTableTool(t *testing.T) {
	idDefault := "nextval('orders_id_seq'::regclass)"
	s, _ := newSchemaServer(
		queryRule{
			contains: "column_default",
			rows: []map[string]any{
				{
					"column_name":              "id",
					"data_type":                "integer",
					"is_nullable":              "NO",
					"column_default":           idDefault,
					"character_maximum_length": nil,
					"numeric_precision":        int64(32),
					"numeric_scale":            int64(0),
					"ordinal_position":         int64(1),
				},
				{
					"column_name":              "email",
					"data_type":                "character varying",
					"is_nullable":              "YES",
					"column_default":           nil,
					"character_maximum_length": int64(255),
					"numeric_precision":        nil,
					"numeric_scale":            nil,
					"ordinal_position":         int64(2),
				},
			},
		},
	)

	result, err := callTool(t, s, "describe_table", map[string]any{"table_name": "orders"})
	require.NoError(t, err)
	require.False(t, result.IsError, "unexpected error: %s", getTextContent(result))

	var response struct {
		TableName string `json:"table_name"`
		Columns   []struct {
			Name             string  `json:"column_name"`
			DataType         string  `json:"data_type"`
			Nullable         bool    `json:"is_nullable"`
			Default          *string `json:"column_default"`
			CharMaxLength    *int64  `json:"character_maximum_length"`
			NumericPrecision *int64  `json:"numeric_precision"`
			Position         int     `json:"ordinal_position"`
		} `json:"columns"`
		ColumnCount int `json:"column_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(getTextContent(result)), &response))

	assert.Equal(t, "orders", response.TableName)
	assert.Equal(t, 2, response.ColumnCount)
	require.Len(t, response.Columns, 2)

	id := response.Columns[0]
	assert.Equal(t, "id", id.Name)
	assert.Equal(t, "integer", id.DataType)
	assert.False(t, id.Nullable)
	require.NotNil(t, id.Default)
	assert.Equal(t, idDefault, *id.Default)
	assert.Nil(t, id.CharMaxLength)
	require.NotNil(t, id.NumericPrecision)
	assert.Equal(t, int64(32), *id.NumericPrecision)
	assert.Equal(t, 1, id.Position)

	email := response.Columns[1]
	assert.Equal(t, "email", email.Name)
	assert.True(t, email.Nullable)
	assert.Nil(t, email.Default)
	require.NotNil(t, email.CharMaxLength)
	assert.Equal(t, int64(255), *email.CharMaxLength)
}

func TestDescribeTableTool_NotFound(t *testing.T) {
	s, _ := newSchemaServer(
		queryRule{contains: "column_default", rows: nil},
	)

	result, err := callTool(t, s, "describe_table", map[string]any{"table_name": "ghost"})
	require.NoError(t, err)

	errResp := decodeError(t, result)
	assert.Equal(t, CodeValidationError, errResp.Error.Code)
	assert.Equal(t, "Table 'ghost' not found", errResp.Error.Message)
}

func TestDescribeTableTool_InvalidName(t *testing.T) {
	t.Run("empty name", func(t *testing.T) {
		s, _ := newSchemaServer()

		result, err := callTool(t, s, "describe_table", map[string]any{"table_name": "  "})
		require.NoError(t, err)

		errResp := decodeError(t, result)
		assert.Equal(t, CodeValidationError, errResp.Error.Code)
		assert.Equal(t, "parameter 'table_name' cannot be empty", errResp.Error.Message)
	})

	t.Run("malformed name", func(t *testing.T) {
		s, executor := newSchemaServer()

		result, err := callTool(t, s, "describe_table", map[string]any{
			"table_name": "orders; DROP TABLE orders",
		})
		require.NoError(t, err)

		errResp := decodeError(t, result)
		assert.Equal(t, CodeValidationError, errResp.Error.Code)
		assert.Contains(t, errResp.Error.Message, "invalid table name format")
		assert.Empty(t, executor.queries)
	})
}
