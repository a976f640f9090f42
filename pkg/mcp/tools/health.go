package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/statlens/statlens-engine/pkg/datasource"
)

type healthResult struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database,omitempty"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the server status and version, plus database
// reachability when an executor is wired.
func RegisterHealthTool(s *server.MCPServer, version string, executor datasource.QueryExecutor) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version, and database reachability"),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		health := healthResult{Status: "ok", Version: version}
		if executor != nil {
			if err := executor.Ping(ctx); err != nil {
				health.Status = "degraded"
				health.Database = "unreachable"
			} else {
				health.Database = "ok"
			}
		}

		result, err := json.Marshal(health)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
