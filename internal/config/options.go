// Package config provides configuration types for the browser bridge.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// DefaultPort is the loopback port the browser extension connects to.
	DefaultPort = 8765

	// DefaultCallTimeout bounds how long a call waits for its reply.
	DefaultCallTimeout = 30 * time.Second

	// DefaultDrainTimeout is the grace window for in-flight calls on shutdown.
	DefaultDrainTimeout = 5 * time.Second

	// DefaultWaitTimeout is used by WaitForConnection when no timeout is given.
	DefaultWaitTimeout = 30 * time.Second

	// DefaultConnectTimeout is how long a tool call waits for the extension
	// to attach before failing with a not-connected error.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultServerName is reported to MCP clients during initialization.
	DefaultServerName = "browser-bridge"
)

// Options configures the browser bridge.
type Options struct {
	// Logger is the slog logger for diagnostic output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger `yaml:"-"`

	// MCPTransport carries the MCP session to the client.
	// If nil, the process's stdin and stdout are used.
	MCPTransport mcp.Transport `yaml:"-"`

	// Port is the loopback TCP port the extension connects to.
	Port int `yaml:"port"`

	// CallTimeout bounds each call's wait for a reply.
	CallTimeout time.Duration `yaml:"call_timeout"`

	// DrainTimeout is the shutdown grace window for pending calls.
	DrainTimeout time.Duration `yaml:"drain_timeout"`

	// WaitTimeout is the default window for WaitForConnection.
	WaitTimeout time.Duration `yaml:"wait_timeout"`

	// ConnectTimeout is the window a tool call waits for the extension to attach.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose"`

	// KillPortHolder terminates any process already bound to Port before listening.
	KillPortHolder bool `yaml:"kill_port_holder"`

	// LogFile redirects logs to a rotating file instead of stderr.
	LogFile string `yaml:"log_file"`

	// MetricsEnabled serves prometheus metrics at /metrics on the bridge listener.
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// FailPendingOnDetach rejects every pending call when the extension
	// disconnects instead of letting each one run to its own deadline.
	FailPendingOnDetach bool `yaml:"fail_pending_on_detach"`

	// ServerName and ServerVersion identify the MCP server.
	ServerName    string `yaml:"server_name"`
	ServerVersion string `yaml:"server_version"`
}

// Default returns Options populated with default values.
func Default() *Options {
	return &Options{
		Port:           DefaultPort,
		CallTimeout:    DefaultCallTimeout,
		DrainTimeout:   DefaultDrainTimeout,
		WaitTimeout:    DefaultWaitTimeout,
		ConnectTimeout: DefaultConnectTimeout,
		MetricsEnabled: true,
		ServerName:     DefaultServerName,
		ServerVersion:  "dev",
	}
}

// Validate checks that the options are usable.
func (o *Options) Validate() error {
	if o.Port < 0 || o.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 0 and 65535", o.Port)
	}

	timeouts := []struct {
		name  string
		value time.Duration
	}{
		{"call_timeout", o.CallTimeout},
		{"drain_timeout", o.DrainTimeout},
		{"wait_timeout", o.WaitTimeout},
		{"connect_timeout", o.ConnectTimeout},
	}

	for _, tt := range timeouts {
		if tt.value <= 0 {
			return fmt.Errorf("invalid %s %s: must be positive", tt.name, tt.value)
		}
	}

	if o.ServerName == "" {
		return fmt.Errorf("server_name must not be empty")
	}

	return nil
}
