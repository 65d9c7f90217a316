package browserbridge

import (
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/browser-bridge-go/internal/config"
)

// Options configures the bridge.
type Options = config.Options

// Default port and timeouts.
const (
	DefaultPort           = config.DefaultPort
	DefaultCallTimeout    = config.DefaultCallTimeout
	DefaultDrainTimeout   = config.DefaultDrainTimeout
	DefaultWaitTimeout    = config.DefaultWaitTimeout
	DefaultConnectTimeout = config.DefaultConnectTimeout
)

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options on top of the defaults.
func applyOptions(opts []Option) *Options {
	options := config.Default()
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// LoadConfig reads a YAML configuration file. An empty path returns the
// defaults.
func LoadConfig(path string) (*Options, error) {
	return config.Load(path)
}

// ===== Basic Configuration =====

// WithOptions replaces every setting with a copy of o, typically one returned
// by LoadConfig. Options given after it still apply.
func WithOptions(o *Options) Option {
	return func(dst *Options) {
		if o != nil {
			*dst = *o
		}
	}
}

// WithLogger sets the logger for diagnostic output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithPort sets the loopback port the extension connects to. Zero picks a
// free port.
func WithPort(port int) Option {
	return func(o *Options) {
		o.Port = port
	}
}

// WithVerbose records the verbose preference. It has no effect on a logger
// passed with WithLogger.
func WithVerbose(verbose bool) Option {
	return func(o *Options) {
		o.Verbose = verbose
	}
}

// WithServerInfo sets the name and version reported to MCP clients.
func WithServerInfo(name, version string) Option {
	return func(o *Options) {
		o.ServerName = name
		o.ServerVersion = version
	}
}

// ===== Timeouts =====

// WithCallTimeout bounds how long each call waits for the extension's reply.
func WithCallTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.CallTimeout = timeout
	}
}

// WithDrainTimeout sets the shutdown grace window for in-flight calls.
func WithDrainTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.DrainTimeout = timeout
	}
}

// WithWaitTimeout sets the default window of WaitForConnection.
func WithWaitTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.WaitTimeout = timeout
	}
}

// WithConnectTimeout sets how long a tool call waits for the extension to
// attach before failing.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.ConnectTimeout = timeout
	}
}

// ===== Behavior =====

// WithKillPortHolder terminates processes holding the port before listening.
func WithKillPortHolder(kill bool) Option {
	return func(o *Options) {
		o.KillPortHolder = kill
	}
}

// WithMetrics enables or disables the /metrics endpoint.
func WithMetrics(enabled bool) Option {
	return func(o *Options) {
		o.MetricsEnabled = enabled
	}
}

// WithFailPendingOnDetach rejects all in-flight calls with ErrPeerDisconnected
// when the extension disconnects, instead of letting each reach its deadline.
func WithFailPendingOnDetach(fail bool) Option {
	return func(o *Options) {
		o.FailPendingOnDetach = fail
	}
}

// WithMCPTransport serves MCP over t instead of stdin and stdout.
func WithMCPTransport(t mcp.Transport) Option {
	return func(o *Options) {
		o.MCPTransport = t
	}
}
