package browserbridge

import (
	"context"
	"fmt"
)

// WithBridge manages a bridge's lifecycle with automatic cleanup.
//
// It creates and starts a bridge, runs fn, and closes the bridge when fn
// returns. No MCP server is started; fn drives the browser through the Bridge
// methods directly. An error from Close is logged and does not override fn's
// error.
//
// Example usage:
//
//	err := browserbridge.WithBridge(ctx, func(b *browserbridge.Bridge) error {
//	    if err := b.WaitForConnection(ctx, time.Minute); err != nil {
//	        return err
//	    }
//	    result := b.CallTool(ctx, "browser_navigate", map[string]any{"url": "https://example.com"})
//	    if result.IsError {
//	        return fmt.Errorf("navigate failed")
//	    }
//	    return nil
//	},
//	    browserbridge.WithPort(8765),
//	)
func WithBridge(ctx context.Context, fn func(*Bridge) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	b, err := New(opts...)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := b.Close(context.WithoutCancel(ctx)); closeErr != nil {
			b.log.Warn("Failed to close bridge", "error", closeErr)
		}
	}()

	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("failed to start bridge: %w", err)
	}

	return fn(b)
}
