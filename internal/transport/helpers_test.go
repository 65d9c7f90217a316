package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wagiedev/browser-bridge-go/internal/protocol"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestTransport(t *testing.T, cfg Config) *Transport {
	t.Helper()

	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = 5 * time.Second
	}

	if cfg.DrainTimeout == 0 {
		cfg.DrainTimeout = time.Second
	}

	tr := New(slog.Default(), cfg)
	require.NoError(t, tr.Listen(context.Background()))

	t.Cleanup(func() {
		_ = tr.Close(context.Background())
	})

	return tr
}

// fakeExtension plays the browser extension side of the connection.
type fakeExtension struct {
	t    *testing.T
	conn *websocket.Conn
	mu   sync.Mutex
}

func dialExtension(t *testing.T, tr *Transport) *fakeExtension {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+tr.Addr().String()+"/", nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return &fakeExtension{t: t, conn: conn}
}

// dialAttached dials and waits until the transport adopted the connection.
func dialAttached(t *testing.T, tr *Transport) *fakeExtension {
	t.Helper()

	attached := make(chan PeerInfo, 1)
	unsubscribe := tr.Subscribe(func(ev Event) {
		if ev.Kind == EventAttached {
			select {
			case attached <- ev.Peer:
			default:
			}
		}
	})
	defer unsubscribe()

	ext := dialExtension(t, tr)

	select {
	case <-attached:
	case <-time.After(2 * time.Second):
		t.Fatal("extension was not attached in time")
	}

	return ext
}

func (f *fakeExtension) readCall() *protocol.Call {
	f.t.Helper()

	require.NoError(f.t, f.conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	_, data, err := f.conn.ReadMessage()
	require.NoError(f.t, err)

	var call protocol.Call
	require.NoError(f.t, json.Unmarshal(data, &call))

	return &call
}

func (f *fakeExtension) send(v any) {
	f.t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	require.NoError(f.t, f.conn.WriteJSON(v))
}

func (f *fakeExtension) sendRaw(data string) {
	f.t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	require.NoError(f.t, f.conn.WriteMessage(websocket.TextMessage, []byte(data)))
}

func (f *fakeExtension) replySuccess(id string, result any) {
	f.send(map[string]any{"id": id, "success": true, "result": result})
}

func (f *fakeExtension) replyError(id, code, message string) {
	f.send(map[string]any{
		"id":      id,
		"success": false,
		"error":   map[string]any{"code": code, "message": message},
	})
}

// waitClosed blocks until the server side closed the connection.
func (f *fakeExtension) waitClosed() error {
	_ = f.conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	for {
		if _, _, err := f.conn.ReadMessage(); err != nil {
			return err
		}
	}
}

type sendResult struct {
	reply *protocol.Reply
	err   error
}

func sendAsync(tr *Transport, operation string, payload map[string]any) <-chan sendResult {
	ch := make(chan sendResult, 1)

	go func() {
		reply, err := tr.Send(context.Background(), operation, payload)
		ch <- sendResult{reply: reply, err: err}
	}()

	return ch
}

func await(t *testing.T, ch <-chan sendResult) sendResult {
	t.Helper()

	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("send did not complete in time")

		return sendResult{}
	}
}

func pendingCount(tr *Transport) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	return len(tr.pending)
}
