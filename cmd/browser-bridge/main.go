// Command browser-bridge serves browser tools to an MCP client over stdio and
// forwards each call to the Browser Bridge extension.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	browserbridge "github.com/wagiedev/browser-bridge-go"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type flags struct {
	port                int
	verbose             bool
	kill                bool
	configPath          string
	logFile             string
	noMetrics           bool
	callTimeout         time.Duration
	connectTimeout      time.Duration
	failPendingOnDetach bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "browser-bridge",
		Short: "Bridge MCP clients to the browser through the Browser Bridge extension",
		Long: `browser-bridge speaks MCP on stdin/stdout and listens on a loopback
WebSocket port for the browser extension. Every browser tool call is
forwarded to the extension and its reply returned to the MCP client.

Logs go to stderr, or to --log-file. Nothing but MCP is written to stdout.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
	}

	fs := root.Flags()
	fs.IntVarP(&f.port, "port", "p", browserbridge.DefaultPort, "Loopback port the extension connects to")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Enable debug logging")
	fs.BoolVar(&f.kill, "kill", false, "Terminate any process holding the port before listening")
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.logFile, "log-file", "", "Write logs to a rotating file instead of stderr")
	fs.BoolVar(&f.noMetrics, "no-metrics", false, "Do not serve /metrics on the bridge port")
	fs.DurationVar(&f.callTimeout, "call-timeout", browserbridge.DefaultCallTimeout, "How long a call waits for the extension's reply")
	fs.DurationVar(&f.connectTimeout, "connect-timeout", browserbridge.DefaultConnectTimeout, "How long a tool call waits for the extension to connect")
	fs.BoolVar(&f.failPendingOnDetach, "fail-pending-on-detach", false, "Fail in-flight calls as soon as the extension disconnects")

	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "browser-bridge %s\n", version)
		},
	}
}

// resolveOptions loads the config file and applies explicitly set flags on top.
func resolveOptions(cmd *cobra.Command, f *flags) (*browserbridge.Options, error) {
	opts, err := browserbridge.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}

	fs := cmd.Flags()

	if fs.Changed("port") {
		opts.Port = f.port
	}

	if fs.Changed("verbose") {
		opts.Verbose = f.verbose
	}

	if fs.Changed("kill") {
		opts.KillPortHolder = f.kill
	}

	if fs.Changed("log-file") {
		opts.LogFile = f.logFile
	}

	if fs.Changed("no-metrics") {
		opts.MetricsEnabled = !f.noMetrics
	}

	if fs.Changed("call-timeout") {
		opts.CallTimeout = f.callTimeout
	}

	if fs.Changed("connect-timeout") {
		opts.ConnectTimeout = f.connectTimeout
	}

	if fs.Changed("fail-pending-on-detach") {
		opts.FailPendingOnDetach = f.failPendingOnDetach
	}

	if opts.ServerVersion == "" || opts.ServerVersion == "dev" {
		opts.ServerVersion = version
	}

	return opts, nil
}

func newLogger(cmd *cobra.Command, opts *browserbridge.Options) (*slog.Logger, io.Closer) {
	if opts.LogFile != "" {
		return browserbridge.NewFileLogger(opts.LogFile, opts.Verbose)
	}

	return browserbridge.NewLogger(cmd.ErrOrStderr(), opts.Verbose), io.NopCloser(nil)
}

func run(cmd *cobra.Command, f *flags) error {
	opts, err := resolveOptions(cmd, f)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "browser-bridge: %v\n", err)

		return err
	}

	log, closer := newLogger(cmd, opts)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting browser bridge", "version", version, "port", opts.Port)

	err = browserbridge.Run(ctx,
		browserbridge.WithOptions(opts),
		browserbridge.WithLogger(log),
	)

	var portErr *browserbridge.PortInUseError

	switch {
	case err == nil, stderrors.Is(err, context.Canceled):
		log.Info("Browser bridge stopped")

		return nil
	case stderrors.As(err, &portErr):
		log.Error("Port already in use", "port", portErr.Port)
		fmt.Fprintf(cmd.ErrOrStderr(),
			"browser-bridge: port %d is already in use; stop the other process or rerun with --kill\n",
			portErr.Port)

		return err
	default:
		log.Error("Browser bridge failed", "error", err)
		fmt.Fprintf(cmd.ErrOrStderr(), "browser-bridge: %v\n", err)

		return err
	}
}
