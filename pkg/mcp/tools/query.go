package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/statlens/statlens-engine/pkg/datasource"
	"github.com/statlens/statlens-engine/pkg/sql"
)

// defaultQueryLimit bounds query results when the caller omits a limit.
const defaultQueryLimit = 100

// QueryToolDeps contains dependencies for the ad-hoc query tool.
type QueryToolDeps struct {
	Executor     datasource.QueryExecutor
	DefaultLimit int
	MaxLimit     int
	Logger       *zap.Logger
}

// RegisterQueryTool registers the read-only ad-hoc SQL tool.
func RegisterQueryTool(s *server.MCPServer, deps *QueryToolDeps) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	tool := mcp.NewTool(
		"query",
		mcp.WithDescription(
			"Run a read-only SQL query: a single SELECT or WITH statement, optionally bound to positional parameters. "+
				"Rows are capped by limit and the response marks whether the result was truncated. "+
				"Use the analysis tools for statistics; use this for ad-hoc inspection of the underlying rows. "+
				"Example: query(sql='SELECT status, count(*) FROM orders WHERE created_at > $1 GROUP BY status', params=['2024-01-01'], limit=100)",
		),
		mcp.WithString(
			"sql",
			mcp.Required(),
			mcp.Description("A single SELECT or WITH statement; $1..$n placeholders bind params"),
		),
		mcp.WithArray(
			"params",
			mcp.Description("Optional - Positional parameter values bound to $1..$n"),
		),
		mcp.WithNumber(
			"limit",
			mcp.Description(fmt.Sprintf("Max rows to return (default: %d, max: %d)", defaultQueryLimit, datasource.MaxQueryLimit)),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sqlText, err := req.RequireString("sql")
		if err != nil {
			return nil, err
		}
		sqlText = trimString(sqlText)
		if sqlText == "" {
			return NewErrorResult(CodeValidationError, "Query cannot be empty"), nil
		}

		validation := sql.ValidateAndNormalize(sqlText)
		if validation.Error != nil {
			return NewErrorResult(CodeSecurityError,
				fmt.Sprintf("Query security validation failed: %v", validation.Error)), nil
		}
		normalized := validation.NormalizedSQL

		if !isReadOnlyQuery(normalized) {
			return NewErrorResult(CodeSecurityError,
				"Query security validation failed: only SELECT and WITH statements are permitted"), nil
		}

		args, _ := req.Params.Arguments.(map[string]any)
		params, err := extractArrayParam(args, "params", deps.Logger)
		if err != nil {
			return NewErrorResult(CodeValidationError, err.Error()), nil
		}
		if err := sql.ValidateParameterTypes(params); err != nil {
			return NewErrorResult(CodeValidationError, err.Error()), nil
		}
		if hits := sql.CheckPositionalParameters(params); len(hits) > 0 {
			deps.Logger.Warn("SQL injection attempt detected",
				zap.String("param", hits[0].ParamName),
				zap.String("fingerprint", hits[0].Fingerprint))
			return NewErrorResult(CodeSQLInjectionError,
				fmt.Sprintf("SQL injection attempt detected in parameter %s", hits[0].ParamName)), nil
		}

		limit := deps.DefaultLimit
		if limit <= 0 {
			limit = defaultQueryLimit
		}
		if limitVal, ok := getOptionalFloat(req, "limit"); ok {
			limit = int(limitVal)
		}
		if limit <= 0 {
			return NewErrorResult(CodeValidationError, "limit must be a positive integer"), nil
		}
		maxLimit := deps.MaxLimit
		if maxLimit <= 0 || maxLimit > datasource.MaxQueryLimit {
			maxLimit = datasource.MaxQueryLimit
		}
		if limit > maxLimit {
			limit = maxLimit
		}

		deps.Logger.Debug("Executing ad-hoc query",
			zap.String("sql", truncateSQL(normalized, 200)),
			zap.Int("limit", limit))

		// Query one row past the limit to detect truncation. At the hard
		// cap the executor clamps the overshoot, so truncation is not
		// reported there.
		result, err := deps.Executor.Query(ctx, normalized, params, limit+1)
		if err != nil {
			if errResult := NewSQLErrorResult(err); errResult != nil {
				return errResult, nil
			}
			return nil, fmt.Errorf("query execution failed: %w", err)
		}

		truncated := len(result.Rows) > limit
		rows := result.Rows
		if truncated {
			rows = rows[:limit]
		}

		response := struct {
			Columns   []datasource.ColumnInfo `json:"columns"`
			Rows      []map[string]any        `json:"rows"`
			RowCount  int                     `json:"row_count"`
			Truncated bool                    `json:"truncated"`
		}{
			Columns:   result.Columns,
			Rows:      rows,
			RowCount:  len(rows),
			Truncated: truncated,
		}

		jsonResult, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal query result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

// isReadOnlyQuery reports whether the statement's first keyword is SELECT
// or WITH.
func isReadOnlyQuery(sqlText string) bool {
	fields := strings.Fields(strings.ToUpper(sqlText))
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "SELECT", "WITH":
		return true
	}
	return false
}
