package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// trimString removes leading and trailing whitespace from a string.
// This is a common helper used across MCP tool parameter validation.
func trimString(s string) string {
	return strings.TrimSpace(s)
}

// getOptionalString extracts an optional string argument from the request.
func getOptionalString(req mcp.CallToolRequest, key string) string {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return ""
	}
	val, ok := args[key].(string)
	if !ok {
		return ""
	}
	return val
}

// getOptionalFloat extracts an optional float argument from the request.
func getOptionalFloat(req mcp.CallToolRequest, key string) (float64, bool) {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return 0, false
	}
	val, ok := args[key].(float64)
	return val, ok
}

// truncateSQL truncates SQL for logging, adding ellipsis if truncated.
func truncateSQL(sql string, maxLen int) string {
	if len(sql) <= maxLen {
		return sql
	}
	return sql[:maxLen] + "..."
}

// extractArrayParam reads an array argument, tolerating clients that send
// arrays as stringified JSON. A native []any passes through untouched; a
// string is parsed as JSON and a warning is logged. Absent keys return
// nil with no error.
func extractArrayParam(args map[string]any, name string, logger *zap.Logger) ([]any, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case []any:
		return v, nil
	case string:
		var parsed []any
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			return nil, fmt.Errorf(
				"parameter %q is a string that could not be parsed as a JSON array; pass a native JSON array instead", name)
		}
		if logger != nil {
			logger.Warn("array parameter arrived as stringified JSON",
				zap.String("param", name))
		}
		return parsed, nil
	default:
		return nil, fmt.Errorf("parameter %q must be an array, got %T", name, raw)
	}
}

// extractStringSlice reads an array argument whose elements must all be
// strings. Same client tolerance as extractArrayParam.
func extractStringSlice(args map[string]any, name string, logger *zap.Logger) ([]string, error) {
	arr, err := extractArrayParam(args, name, logger)
	if err != nil {
		return nil, err
	}
	if arr == nil {
		return nil, nil
	}

	out := make([]string, 0, len(arr))
	for i, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %q element %d must be a string, got %T", name, i, item)
		}
		out = append(out, s)
	}
	return out, nil
}
