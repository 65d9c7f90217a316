package transport

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single frame write to the extension.
	writeWait = 10 * time.Second

	// closeWait bounds the close frame written before dropping a connection.
	closeWait = time.Second

	// maxMessageSize caps inbound frames; screenshots arrive as base64 text.
	maxMessageSize = 64 << 20
)

// PeerInfo describes the attached browser extension connection.
type PeerInfo struct {
	ID          string
	RemoteAddr  string
	UserAgent   string
	ConnectedAt time.Time
}

// EventKind identifies a connection lifecycle event.
type EventKind int

const (
	// EventAttached fires after a new peer is adopted.
	EventAttached EventKind = iota + 1
	// EventDetached fires after a peer connection closed.
	EventDetached
)

func (k EventKind) String() string {
	switch k {
	case EventAttached:
		return "attached"
	case EventDetached:
		return "detached"
	default:
		return "unknown"
	}
}

// Event is delivered to observers registered with Subscribe.
type Event struct {
	Kind EventKind
	Peer PeerInfo

	// Replaced is set on an attach that closed a previous peer.
	Replaced bool

	// Current is false on a detach of a peer that had already been
	// superseded by a newer connection.
	Current bool
}

// peer is one accepted extension connection.
type peer struct {
	info PeerInfo
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newPeer(conn *websocket.Conn, userAgent string) *peer {
	conn.SetReadLimit(maxMessageSize)

	return &peer{
		info: PeerInfo{
			ID:          uuid.NewString(),
			RemoteAddr:  conn.RemoteAddr().String(),
			UserAgent:   userAgent,
			ConnectedAt: time.Now(),
		},
		conn: conn,
	}
}

// write sends one text frame. Safe for concurrent use.
func (p *peer) write(data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return p.conn.WriteMessage(websocket.TextMessage, data)
}

// close sends a close frame and drops the connection. The blocked reader
// observes the close and runs the detach path. Safe to call multiple times.
func (p *peer) close() {
	p.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))
		_ = p.conn.Close()
	})
}
