package browserbridge

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func TestApplyOptions_Defaults(t *testing.T) {
	o := applyOptions(nil)

	require.Equal(t, DefaultPort, o.Port)
	require.Equal(t, DefaultCallTimeout, o.CallTimeout)
	require.Equal(t, DefaultDrainTimeout, o.DrainTimeout)
	require.Equal(t, DefaultWaitTimeout, o.WaitTimeout)
	require.Equal(t, DefaultConnectTimeout, o.ConnectTimeout)
	require.True(t, o.MetricsEnabled)
	require.False(t, o.FailPendingOnDetach)
}

func TestApplyOptions_Overrides(t *testing.T) {
	logger := slog.Default()
	_, serverTransport := mcp.NewInMemoryTransports()

	o := applyOptions([]Option{
		WithLogger(logger),
		WithPort(9000),
		WithVerbose(true),
		WithServerInfo("bridge-test", "1.2.3"),
		WithCallTimeout(time.Second),
		WithDrainTimeout(2 * time.Second),
		WithWaitTimeout(3 * time.Second),
		WithConnectTimeout(4 * time.Second),
		WithKillPortHolder(true),
		WithMetrics(false),
		WithFailPendingOnDetach(true),
		WithMCPTransport(serverTransport),
	})

	require.Same(t, logger, o.Logger)
	require.Equal(t, 9000, o.Port)
	require.True(t, o.Verbose)
	require.Equal(t, "bridge-test", o.ServerName)
	require.Equal(t, "1.2.3", o.ServerVersion)
	require.Equal(t, time.Second, o.CallTimeout)
	require.Equal(t, 2*time.Second, o.DrainTimeout)
	require.Equal(t, 3*time.Second, o.WaitTimeout)
	require.Equal(t, 4*time.Second, o.ConnectTimeout)
	require.True(t, o.KillPortHolder)
	require.False(t, o.MetricsEnabled)
	require.True(t, o.FailPendingOnDetach)
	require.Equal(t, serverTransport, o.MCPTransport)
}

func TestWithOptions_LaterOptionsWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9100\ncall_timeout: 45s\n"), 0o600))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)

	o := applyOptions([]Option{WithOptions(loaded), WithPort(9200)})

	require.Equal(t, 9200, o.Port)
	require.Equal(t, 45*time.Second, o.CallTimeout)
	require.Equal(t, DefaultDrainTimeout, o.DrainTimeout)
}

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer

	NewLogger(&buf, false).Debug("hidden")
	NewLogger(&buf, false).Info("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")

	buf.Reset()
	NewLogger(&buf, true).Debug("debug record")
	require.Contains(t, buf.String(), "debug record")
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bridge.log")

	log, closer := NewFileLogger(path, false)
	log.Info("Browser extension connected", "peer_id", "abc")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "peer_id=abc"))
}

func TestNopLogger(t *testing.T) {
	require.NotPanics(t, func() {
		NopLogger().Error("discarded")
	})
}
