package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/jcpope/homehub/store"
)

// MCPServer exposes hub diagnostics over stdio MCP so an operator's
// tooling can inspect the running hub without a WebSocket client.
type MCPServer struct {
	Server *mcpserver.MCPServer
}

func NewMCPServer(reg *Registry, st *store.Store) *MCPServer {
	s := &MCPServer{Server: mcpserver.NewMCPServer("homehub", "1.0.0")}

	listEndpoints := mcp.NewTool("list_endpoints",
		mcp.WithDescription("List the message types registered on this hub"))
	s.Server.AddTool(listEndpoints, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return textResult(map[string]any{"endpoints": reg.Types()})
	})

	listDevices := mcp.NewTool("list_devices",
		mcp.WithDescription("List the devices currently connected to this hub"))
	s.Server.AddTool(listDevices, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return textResult(st.Devices())
	})

	return s
}

func textResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: string(jsonBytes)},
		},
	}, nil
}

func (s *MCPServer) Start() error {
	slog.Info("Started stdio MCP server")
	defer func() {
		slog.Info("Shut down stdio MCP server")
	}()
	return mcpserver.ServeStdio(s.Server)
}
