// Package browserbridge connects MCP clients to a browser extension.
//
// The bridge listens on a loopback WebSocket endpoint for the browser
// extension and serves the browser tools to an MCP client, normally over
// stdin and stdout. Each tool call becomes one call to the extension,
// correlated with its reply by id, so any number of calls can be in flight at
// once and complete in any order.
//
// # Basic Usage
//
// Run blocks until the MCP client disconnects or ctx is cancelled, then
// drains in-flight calls before returning:
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//
//	err := browserbridge.Run(ctx,
//	    browserbridge.WithPort(8765),
//	    browserbridge.WithLogger(browserbridge.NewLogger(os.Stderr, false)),
//	)
//
// # Programmatic Use
//
// New and Start give access to the bridge without an MCP client:
//
//	b, err := browserbridge.New(browserbridge.WithPort(0))
//	if err != nil {
//	    return err
//	}
//	if err := b.Start(ctx); err != nil {
//	    return err
//	}
//	defer b.Close(context.Background())
//
//	if err := b.WaitForConnection(ctx, 30*time.Second); err != nil {
//	    return err
//	}
//	result := b.CallTool(ctx, "browser_navigate", map[string]any{"url": "https://example.com"})
//
// # Error Handling
//
// Tool failures are reported inside the tool result. Lower level failures use
// the sentinel and typed errors re-exported here:
//
//	if portErr, ok := errors.AsType[*browserbridge.PortInUseError](err); ok {
//	    log.Fatalf("port %d is taken, rerun with --kill", portErr.Port)
//	}
package browserbridge
