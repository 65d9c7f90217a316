package tools

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/browser-bridge-go/internal/config"
	"github.com/wagiedev/browser-bridge-go/internal/errors"
	"github.com/wagiedev/browser-bridge-go/internal/protocol"
)

// NotConnectedMessage is the text of every tool result produced while no
// browser extension is attached.
const NotConnectedMessage = "browser extension is not connected"

// closingMessage is returned for calls rejected during shutdown.
const closingMessage = "browser bridge is shutting down"

// snapshotOperation is the follow-up call made after page-changing actions.
const snapshotOperation = "browser_snapshot"

// Sender delivers one call to the browser extension and waits for its reply.
type Sender interface {
	Send(ctx context.Context, operation string, payload map[string]any) (*protocol.Reply, error)
}

// Readiness reports and awaits the extension connection.
type Readiness interface {
	IsConnected() bool
	WaitForConnection(ctx context.Context, timeout time.Duration) error
}

// Handler runs a tool invocation.
type Handler func(ctx context.Context, inv *Invocation) (*mcp.CallToolResult, error)

// Tool describes one browser tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Handler     Handler

	// Snapshot appends the page's ARIA snapshot to a successful result.
	Snapshot bool

	resolved *jsonschema.Resolved
}

// MCPTool returns the tool definition advertised to MCP clients.
func (t *Tool) MCPTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.InputSchema,
	}
}

func (t *Tool) validate(args map[string]any) error {
	if t.resolved == nil {
		return nil
	}

	if err := t.resolved.Validate(args); err != nil {
		return &errors.InvalidArgumentsError{Tool: t.Name, Err: err}
	}

	return nil
}

// Invocation is a single tool call in flight.
type Invocation struct {
	Tool string
	Args map[string]any

	sender Sender
}

// Send calls the operation named after the tool with the invocation's
// arguments as payload.
func (inv *Invocation) Send(ctx context.Context) (*protocol.Reply, error) {
	return inv.sender.Send(ctx, inv.Tool, inv.Args)
}

// SendOperation calls an arbitrary operation.
func (inv *Invocation) SendOperation(ctx context.Context, operation string, payload map[string]any) (*protocol.Reply, error) {
	return inv.sender.Send(ctx, operation, payload)
}

// Registry holds the browser tools and dispatches calls to them.
type Registry struct {
	log            *slog.Logger
	sender         Sender
	readiness      Readiness
	connectTimeout time.Duration

	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates an empty registry. A connectTimeout <= 0 uses
// config.DefaultConnectTimeout.
func NewRegistry(log *slog.Logger, sender Sender, readiness Readiness, connectTimeout time.Duration) *Registry {
	if connectTimeout <= 0 {
		connectTimeout = config.DefaultConnectTimeout
	}

	return &Registry{
		log:            log.With("component", "tools"),
		sender:         sender,
		readiness:      readiness,
		connectTimeout: connectTimeout,
		tools:          make(map[string]*Tool, 32),
	}
}

// Register adds a tool. It fails when the name is taken or the input schema
// does not resolve.
func (r *Registry) Register(tool *Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("register tool: empty name")
	}

	if tool.Handler == nil {
		return fmt.Errorf("register tool %s: nil handler", tool.Name)
	}

	if tool.InputSchema == nil {
		tool.InputSchema = objectSchema(nil)
	}

	resolved, err := tool.InputSchema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("register tool %s: resolve schema: %w", tool.Name, err)
	}

	tool.resolved = resolved

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("register tool %s: already registered", tool.Name)
	}

	r.tools[tool.Name] = tool

	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]

	return t, ok
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []*Tool {
	r.mu.RLock()

	list := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		list = append(list, t)
	}

	r.mu.RUnlock()

	slices.SortFunc(list, func(a, b *Tool) int {
		return strings.Compare(a.Name, b.Name)
	})

	return list
}

// Call runs the named tool. Failures are reported in the returned result
// with IsError set; Call itself never fails.
//
// Arguments are validated first. Then, if the extension is not attached,
// Call waits up to the connect timeout for it and gives up with
// NotConnectedMessage without invoking the tool.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) *mcp.CallToolResult {
	tool, ok := r.Lookup(name)
	if !ok {
		r.log.Warn("Unknown tool requested", "tool", name)

		return ErrorResult(fmt.Sprintf("%v: %s", errors.ErrUnknownTool, name))
	}

	if args == nil {
		args = make(map[string]any)
	}

	if err := tool.validate(args); err != nil {
		r.log.Debug("Rejected tool arguments", "tool", name, "error", err)

		return ErrorResult(err.Error())
	}

	if err := r.ensureConnected(ctx); err != nil {
		r.log.Warn("Tool call without browser extension", "tool", name, "error", err)

		return ErrorResult(NotConnectedMessage)
	}

	inv := &Invocation{Tool: name, Args: args, sender: r.sender}

	result, err := tool.Handler(ctx, inv)
	if err != nil {
		r.log.Debug("Tool call failed", "tool", name, "error", err)

		return ErrorResult(describe(err))
	}

	if result == nil {
		result = TextResult("")
	}

	if tool.Snapshot && !result.IsError {
		r.appendSnapshot(ctx, inv, result)
	}

	return result
}

func (r *Registry) ensureConnected(ctx context.Context) error {
	if r.readiness.IsConnected() {
		return nil
	}

	return r.readiness.WaitForConnection(ctx, r.connectTimeout)
}

// appendSnapshot adds the current page snapshot after a page-changing action.
// The action already happened, so a failed snapshot is noted in the text
// without marking the result as an error.
func (r *Registry) appendSnapshot(ctx context.Context, inv *Invocation, result *mcp.CallToolResult) {
	reply, err := inv.SendOperation(ctx, snapshotOperation, nil)
	if err != nil {
		r.log.Warn("Failed to capture page snapshot", "tool", inv.Tool, "error", err)
		appendText(result, "Failed to capture page snapshot: "+describe(err))

		return
	}

	appendText(result, formatSnapshot(reply))
}

// describe renders err as tool result text.
func describe(err error) string {
	var peerErr *errors.PeerError

	switch {
	case stderrors.Is(err, errors.ErrNotConnected), stderrors.Is(err, errors.ErrPeerDisconnected):
		return NotConnectedMessage
	case stderrors.Is(err, errors.ErrServerClosing):
		return closingMessage
	case stderrors.As(err, &peerErr):
		return peerErr.Error()
	default:
		return err.Error()
	}
}
