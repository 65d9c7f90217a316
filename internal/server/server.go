// Package server exposes the browser tool registry to MCP clients.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/browser-bridge-go/internal/tools"
)

const instructions = "Controls the user's browser through the Browser Bridge extension. " +
	"Call browser_snapshot to get element references before interacting with the page."

// Server is the front MCP server.
type Server struct {
	log      *slog.Logger
	registry *tools.Registry
	mcp      *mcp.Server
}

// New creates a server advertising every tool in registry.
func New(log *slog.Logger, name, version string, registry *tools.Registry) *Server {
	s := &Server{
		log:      log.With("component", "mcp_server"),
		registry: registry,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    name,
			Version: version,
		}, &mcp.ServerOptions{
			Instructions: instructions,
		}),
	}

	for _, tool := range registry.List() {
		s.mcp.AddTool(tool.MCPTool(), s.handler(tool.Name))
	}

	return s
}

// Run serves MCP over t until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	s.log.Info("Serving MCP", "tools", len(s.registry.List()))

	err := s.mcp.Run(ctx, t)

	switch {
	case err == nil, stderrors.Is(err, io.EOF):
		s.log.Info("MCP client disconnected")

		return nil
	case ctx.Err() != nil:
		s.log.Debug("MCP server stopped", "reason", ctx.Err())

		return nil
	default:
		s.log.Error("Failed to serve MCP", "error", err)

		return fmt.Errorf("serve mcp: %w", err)
	}
}

// RunStdio serves MCP over the process's stdin and stdout.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Connect starts a single session over t without blocking.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	session, err := s.mcp.Connect(ctx, t, nil)
	if err != nil {
		return nil, fmt.Errorf("connect mcp session: %w", err)
	}

	return session, nil
}

func (s *Server) handler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := tools.ParseArguments(req)
		if err != nil {
			s.log.Debug("Rejected tool arguments", "tool", name, "error", err)

			return tools.ErrorResult(err.Error()), nil
		}

		s.log.Debug("Tool call", "tool", name)

		return s.registry.Call(ctx, name, args), nil
	}
}
