//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	browserbridge "github.com/wagiedev/browser-bridge-go"
)

// connectWait is how long each test waits for a real extension to attach.
const connectWait = 20 * time.Second

func bridgePort(t *testing.T) int {
	t.Helper()

	raw := os.Getenv("BROWSER_BRIDGE_PORT")
	if raw == "" {
		return browserbridge.DefaultPort
	}

	port, err := strconv.Atoi(raw)
	require.NoError(t, err)

	return port
}

// withExtension runs fn against a bridge with a real browser extension
// attached, skipping the test when none connects in time.
func withExtension(t *testing.T, fn func(ctx context.Context, b *browserbridge.Bridge)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	err := browserbridge.WithBridge(ctx, func(b *browserbridge.Bridge) error {
		if err := b.WaitForConnection(ctx, connectWait); err != nil {
			return err
		}

		fn(ctx, b)

		return nil
	},
		browserbridge.WithPort(bridgePort(t)),
		browserbridge.WithLogger(browserbridge.NewLogger(os.Stderr, testing.Verbose())),
	)

	if errors.Is(err, browserbridge.ErrConnectionWaitTimeout) {
		t.Skip("browser extension did not connect")
	}

	var portErr *browserbridge.PortInUseError
	if errors.As(err, &portErr) {
		t.Skipf("port %d is in use", portErr.Port)
	}

	require.NoError(t, err)
}

func textOf(result *mcp.CallToolResult) string {
	var text string

	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			text += tc.Text + "\n"
		}
	}

	return text
}
