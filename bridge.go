package browserbridge

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/browser-bridge-go/internal/lifecycle"
	"github.com/wagiedev/browser-bridge-go/internal/metrics"
	"github.com/wagiedev/browser-bridge-go/internal/portguard"
	"github.com/wagiedev/browser-bridge-go/internal/server"
	"github.com/wagiedev/browser-bridge-go/internal/tools"
	"github.com/wagiedev/browser-bridge-go/internal/transport"
)

// Bridge wires the extension transport, the connection lifecycle, the tool
// registry and the MCP server together.
type Bridge struct {
	opts *Options
	log  *slog.Logger

	transport *transport.Transport
	lifecycle *lifecycle.Manager
	registry  *tools.Registry
	server    *server.Server

	closeOnce sync.Once
	closeErr  error
}

// New builds a bridge from opts. Call Start to begin listening.
func New(opts ...Option) (*Bridge, error) {
	options := applyOptions(opts)

	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	var collector *metrics.Collector
	if options.MetricsEnabled {
		collector = metrics.New()
	}

	t := transport.New(log, transport.Config{
		Port:                options.Port,
		CallTimeout:         options.CallTimeout,
		DrainTimeout:        options.DrainTimeout,
		FailPendingOnDetach: options.FailPendingOnDetach,
		Metrics:             collector,
	})

	lc := lifecycle.New(log, t, collector)

	registry := tools.NewRegistry(log, t, lc, options.ConnectTimeout)
	if err := tools.RegisterCatalog(registry); err != nil {
		lc.Close()

		return nil, fmt.Errorf("register tools: %w", err)
	}

	return &Bridge{
		opts:      options,
		log:       log,
		transport: t,
		lifecycle: lc,
		registry:  registry,
		server:    server.New(log, options.ServerName, options.ServerVersion, registry),
	}, nil
}

// Start binds the extension endpoint. With KillPortHolder set, processes
// holding the port are terminated first.
func (b *Bridge) Start(ctx context.Context) error {
	if b.opts.KillPortHolder && b.opts.Port != 0 {
		guard := portguard.New(&portguard.Config{Logger: b.log})

		if err := guard.Free(ctx, b.opts.Port); err != nil {
			b.log.Error("Failed to free port", "port", b.opts.Port, "error", err)

			return err
		}
	}

	return b.transport.Listen(ctx)
}

// Addr returns the bound extension endpoint, or nil before Start.
func (b *Bridge) Addr() net.Addr {
	return b.transport.Addr()
}

// IsConnected reports whether the browser extension is attached.
func (b *Bridge) IsConnected() bool {
	return b.lifecycle.IsConnected()
}

// WaitForConnection blocks until the extension attaches. A timeout <= 0
// uses the configured wait timeout.
func (b *Bridge) WaitForConnection(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = b.opts.WaitTimeout
	}

	return b.lifecycle.WaitForConnection(ctx, timeout)
}

// CallTool runs a browser tool directly. Failures are reported in the result.
func (b *Bridge) CallTool(ctx context.Context, name string, args map[string]any) *mcp.CallToolResult {
	return b.registry.Call(ctx, name, args)
}

// Tools returns the registered tool definitions sorted by name.
func (b *Bridge) Tools() []*mcp.Tool {
	list := b.registry.List()

	defs := make([]*mcp.Tool, 0, len(list))
	for _, t := range list {
		defs = append(defs, t.MCPTool())
	}

	return defs
}

// Serve runs the MCP server until the client disconnects or ctx is cancelled,
// then closes the bridge, draining in-flight calls.
func (b *Bridge) Serve(ctx context.Context) error {
	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(serveCtx)

	g.Go(func() error {
		defer cancel()

		if b.opts.MCPTransport != nil {
			return b.server.Run(gctx, b.opts.MCPTransport)
		}

		return b.server.RunStdio(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()

		// Detached from ctx so the drain window is not cut short by the
		// cancellation that triggered it.
		return b.Close(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

// Close shuts the bridge down. In-flight calls get the drain window to
// complete; the rest fail with ErrServerClosing. Safe to call more than once.
func (b *Bridge) Close(ctx context.Context) error {
	b.closeOnce.Do(func() {
		b.lifecycle.Close()
		b.closeErr = b.transport.Close(ctx)
	})

	return b.closeErr
}

// Run builds, starts and serves a bridge until the MCP client disconnects or
// ctx is cancelled.
func Run(ctx context.Context, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	b, err := New(opts...)
	if err != nil {
		return err
	}

	if err := b.Start(ctx); err != nil {
		if closeErr := b.Close(context.Background()); closeErr != nil {
			b.log.Warn("Failed to close bridge", "error", closeErr)
		}

		return fmt.Errorf("start bridge: %w", err)
	}

	return b.Serve(ctx)
}
