package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/statlens/statlens-engine/pkg/analysis"
	"github.com/statlens/statlens-engine/pkg/datasource"
	"github.com/statlens/statlens-engine/pkg/sql"
)

// defaultSchema is searched when list_tables gets no schema argument.
const defaultSchema = "public"

// SchemaToolDeps contains dependencies for schema introspection tools.
type SchemaToolDeps struct {
	Executor datasource.QueryExecutor
	Logger   *zap.Logger
}

// RegisterSchemaTools registers tools that expose table and column metadata.
func RegisterSchemaTools(s *server.MCPServer, deps *SchemaToolDeps) {
	resolver := analysis.NewResolver(deps.Executor)
	registerListTablesTool(s, deps, resolver)
	registerDescribeTableTool(s, deps, resolver)
}

// registerListTablesTool adds the list_tables tool for schema discovery.
func registerListTablesTool(s *server.MCPServer, deps *SchemaToolDeps, resolver *analysis.Resolver) {
	tool := mcp.NewTool(
		"list_tables",
		mcp.WithDescription(
			"List the tables and views in a schema with their estimated row counts and on-disk sizes. "+
				"Use this first to discover what data is available for analysis. "+
				"Example: list_tables(schema='public')",
		),
		mcp.WithString(
			"schema",
			mcp.Description("Schema to list (default: 'public')"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		schema := trimString(getOptionalString(req, "schema"))
		if schema == "" {
			schema = defaultSchema
		}
		if err := sql.ValidateSchemaName(schema); err != nil {
			return NewErrorResult(CodeValidationError, err.Error()), nil
		}

		tables, err := resolver.ListTables(ctx, schema)
		if err != nil {
			return nil, fmt.Errorf("failed to list tables: %w", err)
		}

		response := struct {
			Schema     string                  `json:"schema"`
			Tables     []analysis.TableSummary `json:"tables"`
			TableCount int                     `json:"table_count"`
		}{
			Schema:     schema,
			Tables:     tables,
			TableCount: len(tables),
		}

		jsonResult, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal table list: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

// registerDescribeTableTool adds the describe_table tool for column metadata.
func registerDescribeTableTool(s *server.MCPServer, deps *SchemaToolDeps, resolver *analysis.Resolver) {
	tool := mcp.NewTool(
		"describe_table",
		mcp.WithDescription(
			"Describe a table's columns: name, data type, nullability, default, and length/precision limits, "+
				"in ordinal order. Use this before analyze_column or analyze_correlations to see which columns exist "+
				"and which are numeric. Example: describe_table(table_name='orders')",
		),
		mcp.WithString(
			"table_name",
			mcp.Required(),
			mcp.Description("Table to describe"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tableName, err := req.RequireString("table_name")
		if err != nil {
			return nil, err
		}
		tableName = trimString(tableName)
		if tableName == "" {
			return NewErrorResult(CodeValidationError, "parameter 'table_name' cannot be empty"), nil
		}
		if err := sql.ValidateTableName(tableName); err != nil {
			return NewErrorResult(CodeValidationError, err.Error()), nil
		}

		columns, err := resolver.ResolveTableColumns(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to describe table: %w", err)
		}
		if len(columns) == 0 {
			return NewErrorResult(CodeValidationError,
				fmt.Sprintf("Table '%s' not found", tableName)), nil
		}

		type columnDetail struct {
			Name             string  `json:"column_name"`
			DataType         string  `json:"data_type"`
			Nullable         bool    `json:"is_nullable"`
			Default          *string `json:"column_default"`
			CharMaxLength    *int64  `json:"character_maximum_length,omitempty"`
			NumericPrecision *int64  `json:"numeric_precision,omitempty"`
			NumericScale     *int64  `json:"numeric_scale,omitempty"`
			Position         int     `json:"ordinal_position"`
		}
		details := make([]columnDetail, len(columns))
		for i, col := range columns {
			details[i] = columnDetail{
				Name:             col.Name,
				DataType:         col.DataType,
				Nullable:         col.Nullable,
				Default:          col.Default,
				CharMaxLength:    col.CharMaxLength,
				NumericPrecision: col.NumericPrecision,
				NumericScale:     col.NumericScale,
				Position:         col.Position,
			}
		}

		response := struct {
			TableName   string         `json:"table_name"`
			Columns     []columnDetail `json:"columns"`
			ColumnCount int            `json:"column_count"`
		}{
			TableName:   tableName,
			Columns:     details,
			ColumnCount: len(details),
		}

		jsonResult, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal table description: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
