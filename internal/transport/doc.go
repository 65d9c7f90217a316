// Package transport implements the correlation transport between the bridge
// and the browser extension.
//
// The Transport owns a loopback WebSocket endpoint and at most one attached
// extension connection (the peer). Send multiplexes any number of concurrent
// calls onto that single connection: each call gets a fresh ULID, a pending
// entry with its own deadline timer, and is written as one text frame. Replies
// are matched purely by id, so calls may complete in any order.
//
// The Transport handles:
//   - Last-connection-wins peer adoption (the old peer is closed first)
//   - Reply correlation, with malformed and unmatched replies logged and dropped
//   - Per-call timeouts, where the timer and the reply race to a single resolver
//   - Attach/detach notification through typed observers
//   - Graceful drain of pending calls on Close
//
// Example usage:
//
//	t := transport.New(log, transport.Config{Port: 8765, CallTimeout: 30 * time.Second})
//	if err := t.Listen(ctx); err != nil {
//		return err
//	}
//	defer t.Close(context.Background())
//
//	reply, err := t.Send(ctx, "browser_navigate", map[string]any{"url": "https://example.com"})
package transport
