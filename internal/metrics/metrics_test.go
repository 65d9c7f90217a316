package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector_ObserveCall(t *testing.T) {
	c := New()

	c.ObserveCall("browser_navigate", OutcomeSuccess, 120*time.Millisecond)
	c.ObserveCall("browser_navigate", OutcomeSuccess, 80*time.Millisecond)
	c.ObserveCall("browser_click", OutcomeTimeout, 30*time.Second)

	require.InDelta(t, 2, testutil.ToFloat64(c.callsTotal.WithLabelValues("browser_navigate", OutcomeSuccess)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(c.callsTotal.WithLabelValues("browser_click", OutcomeTimeout)), 0)
}

func TestCollector_PeerState(t *testing.T) {
	c := New()

	c.PeerAttached()
	require.InDelta(t, 1, testutil.ToFloat64(c.peerConnected), 0)

	c.PeerAttached()
	require.InDelta(t, 2, testutil.ToFloat64(c.peerAttachTotal), 0)

	c.PeerDetached()
	require.InDelta(t, 0, testutil.ToFloat64(c.peerConnected), 0)
}

func TestCollector_Counters(t *testing.T) {
	c := New()

	c.SetPending(3)
	c.MalformedMessage()
	c.UnmatchedReply()
	c.UnmatchedReply()
	c.ConnectionWait("timeout")

	require.InDelta(t, 3, testutil.ToFloat64(c.pendingCalls), 0)
	require.InDelta(t, 1, testutil.ToFloat64(c.malformedTotal), 0)
	require.InDelta(t, 2, testutil.ToFloat64(c.unmatchedTotal), 0)
	require.InDelta(t, 1, testutil.ToFloat64(c.connectWaitsTotal.WithLabelValues("timeout")), 0)
}

func TestCollector_Nil(t *testing.T) {
	var c *Collector

	require.NotPanics(t, func() {
		c.ObserveCall("browser_navigate", OutcomeSuccess, time.Second)
		c.SetPending(1)
		c.PeerAttached()
		c.PeerDetached()
		c.MalformedMessage()
		c.UnmatchedReply()
		c.ConnectionWait("attached")
	})
	require.Nil(t, c.Registry())

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.ObserveCall("browser_snapshot", OutcomeSuccess, 10*time.Millisecond)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `bridge_calls_total{operation="browser_snapshot",outcome="success"} 1`)
}
