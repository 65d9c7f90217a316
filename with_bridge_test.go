package browserbridge_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	browserbridge "github.com/wagiedev/browser-bridge-go"
)

func TestWithBridge_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := browserbridge.WithBridge(ctx, func(*browserbridge.Bridge) error {
		t.Error("callback should not be called with cancelled context")

		return nil
	})

	require.ErrorIs(t, err, context.Canceled)
}

func TestWithBridge_CallbackError(t *testing.T) {
	boom := errors.New("boom")

	var addr net.Addr

	err := browserbridge.WithBridge(context.Background(), func(b *browserbridge.Bridge) error {
		addr = b.Addr()

		return boom
	}, browserbridge.WithPort(0))

	require.ErrorIs(t, err, boom)
	require.NotNil(t, addr)

	// The listener is gone once WithBridge returns.
	conn, dialErr := net.DialTimeout("tcp", addr.String(), 200*time.Millisecond)
	if dialErr == nil {
		_ = conn.Close()
	}

	require.Error(t, dialErr)
}

func TestWithBridge_StartFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	defer ln.Close()

	err = browserbridge.WithBridge(context.Background(), func(*browserbridge.Bridge) error {
		t.Error("callback should not be called when start fails")

		return nil
	}, browserbridge.WithPort(ln.Addr().(*net.TCPAddr).Port))

	var portErr *browserbridge.PortInUseError
	require.ErrorAs(t, err, &portErr)
}

func TestWithBridge_NotConnectedToolResult(t *testing.T) {
	err := browserbridge.WithBridge(context.Background(), func(b *browserbridge.Bridge) error {
		result := b.CallTool(context.Background(), "browser_tab_list", nil)
		require.True(t, result.IsError)

		return nil
	}, browserbridge.WithPort(0), browserbridge.WithConnectTimeout(50*time.Millisecond))

	require.NoError(t, err)
}
