package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wagiedev/browser-bridge-go/internal/errors"
	"github.com/wagiedev/browser-bridge-go/internal/metrics"
)

// Config holds transport settings.
type Config struct {
	// Port is the loopback port to listen on. Zero picks a free port.
	Port int

	// CallTimeout is the per-call reply deadline.
	CallTimeout time.Duration

	// DrainTimeout is the grace window Close gives pending calls.
	DrainTimeout time.Duration

	// FailPendingOnDetach rejects all pending calls with ErrPeerDisconnected
	// when the current peer disconnects.
	FailPendingOnDetach bool

	// Metrics is optional.
	Metrics *metrics.Collector
}

// Transport correlates calls and replies over a single extension connection.
//
// All mutable state (the current peer, the pending-call table, the closing
// flag) lives behind mu. Sends, replies, timers and the accept path each take
// mu only long enough to update that state; nothing blocks on the network
// while holding it except closing a superseded peer.
type Transport struct {
	log      *slog.Logger
	cfg      Config
	metrics  *metrics.Collector
	upgrader websocket.Upgrader

	mu      sync.Mutex
	peer    *peer
	pending map[string]*pendingCall
	closing bool
	drained chan struct{}

	observersMu  sync.RWMutex
	observers    []observer
	nextObserver uint64

	listener   net.Listener
	httpServer *http.Server

	// Peer read loops
	wg sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

type observer struct {
	id uint64
	fn func(Event)
}

// New creates a transport. Call Listen to start accepting the extension.
func New(log *slog.Logger, cfg Config) *Transport {
	return &Transport{
		log:     log.With("component", "transport"),
		cfg:     cfg,
		metrics: cfg.Metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The listener is loopback-only and the extension connects from a
			// chrome-extension:// origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		pending: make(map[string]*pendingCall, 16),
		done:    make(chan struct{}),
	}
}

// Listen binds the loopback endpoint and starts accepting connections in the
// background.
//
// Returns PortInUseError when the port is already bound. The caller is
// expected to have freed the port beforehand.
func (t *Transport) Listen(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.listener != nil {
		return errors.ErrAlreadyListening
	}

	if t.closing {
		return errors.ErrServerClosing
	}

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(t.cfg.Port))

	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		if stderrors.Is(err, syscall.EADDRINUSE) {
			t.log.Error("Port already in use", "port", t.cfg.Port)

			return &errors.PortInUseError{Port: t.cfg.Port, Err: err}
		}

		t.log.Error("Failed to listen", "addr", addr, "error", err)

		return fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", t.handleUpgrade)

	if t.metrics != nil {
		mux.Handle("/metrics", t.metrics.Handler())
	}

	t.listener = ln
	t.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := t.httpServer.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			t.log.Error("Listener stopped unexpectedly", "error", err)
		}
	}()

	t.log.Info("Waiting for browser extension", "addr", ln.Addr().String())

	return nil
}

// Addr returns the bound address, or nil before Listen.
func (t *Transport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.listener == nil {
		return nil
	}

	return t.listener.Addr()
}

// Connection returns the attached peer, or nil when none is attached.
func (t *Transport) Connection() *PeerInfo {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.peer == nil {
		return nil
	}

	info := t.peer.info

	return &info
}

// IsConnected reports whether a peer is attached.
func (t *Transport) IsConnected() bool {
	return t.Connection() != nil
}

// Done returns a channel that is closed once Close has completed.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// Subscribe registers fn for attach and detach events and returns a function
// that removes it.
//
// Observers run synchronously on the goroutine that accepted or lost the
// connection, after the transport state has been updated, and must not block.
func (t *Transport) Subscribe(fn func(Event)) func() {
	t.observersMu.Lock()
	defer t.observersMu.Unlock()

	t.nextObserver++
	id := t.nextObserver
	t.observers = append(t.observers, observer{id: id, fn: fn})

	return func() {
		t.observersMu.Lock()
		defer t.observersMu.Unlock()

		for i, o := range t.observers {
			if o.id == id {
				t.observers = append(t.observers[:i], t.observers[i+1:]...)

				return
			}
		}
	}
}

func (t *Transport) notify(ev Event) {
	t.observersMu.RLock()
	observers := make([]observer, len(t.observers))
	copy(observers, t.observers)
	t.observersMu.RUnlock()

	for _, o := range observers {
		o.fn(ev)
	}
}

// handleUpgrade accepts an extension connection and runs its read loop.
func (t *Transport) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "websocket upgrade required", http.StatusUpgradeRequired)

		return
	}

	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.log.Warn("Failed to upgrade extension connection", "remote_addr", r.RemoteAddr, "error", err)

		return
	}

	p := newPeer(conn, r.UserAgent())

	if !t.attach(p) {
		return
	}

	t.readLoop(p)
}

// attach adopts p as the current peer, closing any previous peer first.
func (t *Transport) attach(p *peer) bool {
	t.mu.Lock()

	if t.closing {
		t.mu.Unlock()
		t.log.Debug("Rejecting extension connection during shutdown", "peer_id", p.info.ID)
		p.close()

		return false
	}

	old := t.peer
	if old != nil {
		old.close()
	}

	t.peer = p
	t.wg.Add(1)
	t.mu.Unlock()

	if old != nil {
		t.log.Info("Replaced existing extension connection",
			"peer_id", p.info.ID,
			"previous_peer_id", old.info.ID,
		)
	}

	t.log.Info("Browser extension connected", "peer_id", p.info.ID, "remote_addr", p.info.RemoteAddr)
	t.metrics.PeerAttached()
	t.notify(Event{Kind: EventAttached, Peer: p.info, Replaced: old != nil})

	return true
}

// detach runs once per peer after its read loop ends.
func (t *Transport) detach(p *peer) {
	t.mu.Lock()

	current := t.peer == p
	if current {
		t.peer = nil
	}

	var failed []*pendingCall
	if current && t.cfg.FailPendingOnDetach {
		failed = t.takeAllLocked()
	}

	t.mu.Unlock()

	p.close()

	for _, pc := range failed {
		t.deliver(pc, callResult{err: errors.ErrPeerDisconnected})
	}

	if len(failed) > 0 {
		t.log.Warn("Failed pending calls on disconnect", "peer_id", p.info.ID, "count", len(failed))
		t.metrics.SetPending(0)
	}

	if current {
		t.metrics.PeerDetached()
	}

	t.log.Info("Browser extension disconnected", "peer_id", p.info.ID, "current", current)
	t.notify(Event{Kind: EventDetached, Peer: p.info, Current: current})
}

// readLoop reads frames from p until the connection closes.
func (t *Transport) readLoop(p *peer) {
	defer t.wg.Done()
	defer t.detach(p)

	for {
		msgType, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				t.log.Warn("Extension connection closed unexpectedly", "peer_id", p.info.ID, "error", err)
			} else {
				t.log.Debug("Extension connection closed", "peer_id", p.info.ID, "error", err)
			}

			return
		}

		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		t.handleMessage(p, data)
	}
}

// Close shuts the transport down.
//
// Pending calls get up to DrainTimeout (or until ctx is done) to resolve on
// their own; whatever is left is rejected with ErrServerClosing. Then the
// peer connection and the listener are closed. New sends fail with
// ErrServerClosing as soon as Close starts. Calling Close again returns the
// first result.
func (t *Transport) Close(ctx context.Context) error {
	t.closeOnce.Do(func() {
		t.closeErr = t.shutdown(ctx)
		close(t.done)
	})

	return t.closeErr
}

func (t *Transport) shutdown(ctx context.Context) error {
	t.log.Debug("Closing transport")

	t.mu.Lock()
	t.closing = true

	var drained chan struct{}

	inFlight := len(t.pending)
	if inFlight > 0 {
		drained = make(chan struct{})
		t.drained = drained
	}

	t.mu.Unlock()

	if drained != nil {
		t.log.Info("Draining pending calls", "count", inFlight, "grace", t.cfg.DrainTimeout)
		t.waitDrained(ctx, drained)
	}

	t.mu.Lock()
	remaining := t.takeAllLocked()
	p := t.peer
	ln := t.listener
	srv := t.httpServer
	t.mu.Unlock()

	for _, pc := range remaining {
		t.deliver(pc, callResult{err: errors.ErrServerClosing})
	}

	if len(remaining) > 0 {
		t.log.Warn("Rejected pending calls at shutdown", "count", len(remaining))
		t.metrics.SetPending(0)
	}

	if p != nil {
		p.close()
	}

	var err error

	if srv != nil {
		// Hijacked WebSocket connections are not tracked by the http server,
		// so Close is enough here; the peer read loop is awaited below.
		if closeErr := srv.Close(); closeErr != nil && !stderrors.Is(closeErr, net.ErrClosed) {
			err = fmt.Errorf("close listener: %w", closeErr)
		}
	} else if ln != nil {
		if closeErr := ln.Close(); closeErr != nil {
			err = fmt.Errorf("close listener: %w", closeErr)
		}
	}

	t.wg.Wait()
	t.log.Info("Transport closed")

	return err
}

// waitDrained blocks until every pending call settled, the grace window
// elapsed, or ctx is done.
func (t *Transport) waitDrained(ctx context.Context, drained <-chan struct{}) {
	timer := time.NewTimer(t.cfg.DrainTimeout)
	defer timer.Stop()

	select {
	case <-drained:
		t.log.Info("All pending calls settled")
	case <-timer.C:
		t.log.Warn("Drain window elapsed with calls still pending")
	case <-ctx.Done():
		t.log.Warn("Drain interrupted", "error", ctx.Err())
	}
}
