// Package tools provides MCP tool implementations for statlens-engine.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/statlens/statlens-engine/pkg/analysis"
)

// defaultDuplicateLimit bounds find_duplicates when the caller omits one.
const defaultDuplicateLimit = 100

// AnalysisToolDeps contains dependencies for the statistical analysis tools.
type AnalysisToolDeps struct {
	Service               *analysis.Service
	DefaultDuplicateLimit int
	Logger                *zap.Logger
}

// RegisterAnalysisTools registers the statistical analysis MCP tools.
func RegisterAnalysisTools(s *server.MCPServer, deps *AnalysisToolDeps) {
	registerAnalyzeColumnTool(s, deps)
	registerFindDuplicatesTool(s, deps)
	registerProfileTableTool(s, deps)
	registerAnalyzeCorrelationsTool(s, deps)
}

// registerAnalyzeColumnTool adds the analyze_column tool for single-column statistics.
func registerAnalyzeColumnTool(s *server.MCPServer, deps *AnalysisToolDeps) {
	tool := mcp.NewTool(
		"analyze_column",
		mcp.WithDescription(
			"Analyze a single column: row counts, null statistics, distinct counts, and the top 10 most frequent values. "+
				"Numeric columns additionally get min/max/avg/median/stddev and quartiles; "+
				"text columns get min/avg/max value length. "+
				"Example: analyze_column(table_name='users', column_name='age')",
		),
		mcp.WithString(
			"table_name",
			mcp.Required(),
			mcp.Description("Table containing the column (e.g., 'users', 'orders')"),
		),
		mcp.WithString(
			"column_name",
			mcp.Required(),
			mcp.Description("Column to analyze"),
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

		columnName, err := req.RequireString("column_name")
		if err != nil {
			return nil, err
		}
		columnName = trimString(columnName)
		if columnName == "" {
			return NewErrorResult(CodeValidationError, "parameter 'column_name' cannot be empty"), nil
		}

		payload, err := deps.Service.AnalyzeColumn(ctx, tableName, columnName)
		if err != nil {
			return NewAnalysisErrorResult(err, "Failed to analyze column"), nil
		}

		result := analysis.NewResult(analysis.TypeColumnAnalysis, tableName, &columnName, payload)
		jsonResult, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal column analysis: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

// registerFindDuplicatesTool adds the find_duplicates tool for duplicate-group detection.
func registerFindDuplicatesTool(s *server.MCPServer, deps *AnalysisToolDeps) {
	tool := mcp.NewTool(
		"find_duplicates",
		mcp.WithDescription(
			"Find groups of rows sharing identical values across the given columns (all columns when omitted). "+
				"Groups are returned largest first with their member row identifiers; "+
				"summary totals count the whole duplicate population, not just the returned page. "+
				"Example: find_duplicates(table_name='contacts', columns=['email'], limit=50)",
		),
		mcp.WithString(
			"table_name",
			mcp.Required(),
			mcp.Description("Table to scan for duplicate rows"),
		),
		mcp.WithArray(
			"columns",
			mcp.Description("Optional - Columns that define a duplicate; every column when omitted"),
		),
		mcp.WithNumber(
			"limit",
			mcp.Description("Max duplicate groups to return (default: 100, max: 10000)"),
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

		args, _ := req.Params.Arguments.(map[string]any)
		columns, err := extractStringSlice(args, "columns", deps.Logger)
		if err != nil {
			return NewErrorResult(CodeValidationError, err.Error()), nil
		}

		limit := deps.DefaultDuplicateLimit
		if limit <= 0 {
			limit = defaultDuplicateLimit
		}
		if limitVal, ok := getOptionalFloat(req, "limit"); ok {
			limit = int(limitVal)
		}

		payload, err := deps.Service.FindDuplicates(ctx, tableName, columns, limit)
		if err != nil {
			return NewAnalysisErrorResult(err, "Failed to find duplicates"), nil
		}

		result := analysis.NewResult(analysis.TypeDuplicateAnalysis, tableName, nil, payload)
		jsonResult, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal duplicate report: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

// registerProfileTableTool adds the profile_table tool for whole-table profiling.
func registerProfileTableTool(s *server.MCPServer, deps *AnalysisToolDeps) {
	tool := mcp.NewTool(
		"profile_table",
		mcp.WithDescription(
			"Profile an entire table: row count, per-column null/distinct statistics with type-specific detail, "+
				"sample values for low-cardinality columns, and a summary of nullable/numeric/text/unique columns. "+
				"Pass sample_size to profile a random subset of large tables; "+
				"the response marks whether sampling was applied. "+
				"Example: profile_table(table_name='orders', sample_size=10000)",
		),
		mcp.WithString(
			"table_name",
			mcp.Required(),
			mcp.Description("Table to profile"),
		),
		mcp.WithNumber(
			"sample_size",
			mcp.Description("Optional - Profile a random sample of this many rows instead of the full table"),
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

		var sampleSize *int64
		if val, ok := getOptionalFloat(req, "sample_size"); ok {
			n := int64(val)
			sampleSize = &n
		}

		payload, err := deps.Service.ProfileTable(ctx, tableName, sampleSize)
		if err != nil {
			return NewAnalysisErrorResult(err, "Failed to profile table"), nil
		}

		result := analysis.NewResult(analysis.TypeTableProfile, tableName, nil, payload)
		jsonResult, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal table profile: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

// registerAnalyzeCorrelationsTool adds the analyze_correlations tool for pairwise correlation.
func registerAnalyzeCorrelationsTool(s *server.MCPServer, deps *AnalysisToolDeps) {
	tool := mcp.NewTool(
		"analyze_correlations",
		mcp.WithDescription(
			"Compute the Pearson correlation coefficient for every pair of numeric columns "+
				"(all numeric columns when none are given). "+
				"Pairs are returned strongest first with strength labels and plain-language interpretations; "+
				"pairs with zero variance or insufficient data are reported as undefined rather than dropped. "+
				"Example: analyze_correlations(table_name='houses', columns=['price','sqft','age'])",
		),
		mcp.WithString(
			"table_name",
			mcp.Required(),
			mcp.Description("Table containing the numeric columns"),
		),
		mcp.WithArray(
			"columns",
			mcp.Description("Optional - Numeric columns to correlate; all numeric columns when omitted"),
		),
		mcp.WithString(
			"method",
			mcp.Description("Correlation method (default: 'pearson'; only 'pearson' is supported)"),
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

		args, _ := req.Params.Arguments.(map[string]any)
		columns, err := extractStringSlice(args, "columns", deps.Logger)
		if err != nil {
			return NewErrorResult(CodeValidationError, err.Error()), nil
		}

		method := trimString(getOptionalString(req, "method"))
		if method == "" {
			method = analysis.MethodPearson
		}

		payload, err := deps.Service.AnalyzeCorrelations(ctx, tableName, columns, method)
		if err != nil {
			return NewAnalysisErrorResult(err, "Failed to analyze correlations"), nil
		}

		result := analysis.NewResult(analysis.TypeCorrelationAnalysis, tableName, nil, payload)
		jsonResult, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal correlation report: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
