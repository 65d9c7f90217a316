// Package lifecycle tracks whether the browser extension is attached and lets
// callers wait for it to attach.
//
// Callers that arrive while no extension is attached share a single pending
// wait. The first caller creates it and starts its timer; the next attach
// releases every waiter at once, and the timer rejects every waiter with
// ErrConnectionWaitTimeout. Either way the shared wait is cleared so a later
// caller starts a fresh one.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wagiedev/browser-bridge-go/internal/config"
	"github.com/wagiedev/browser-bridge-go/internal/errors"
	"github.com/wagiedev/browser-bridge-go/internal/metrics"
	"github.com/wagiedev/browser-bridge-go/internal/transport"
)

// Transport is the subset of the correlation transport the manager needs.
type Transport interface {
	IsConnected() bool
	Subscribe(fn func(transport.Event)) func()
}

// Compile-time verification that the transport satisfies Transport.
var _ Transport = (*transport.Transport)(nil)

// Manager exposes connection readiness to the tool layer.
type Manager struct {
	log       *slog.Logger
	transport Transport
	metrics   *metrics.Collector

	mu     sync.Mutex
	wait   *connectionWait
	closed bool

	unsubscribe func()
}

// connectionWait is the shared future for the next attach.
type connectionWait struct {
	done  chan struct{}
	err   error
	timer *time.Timer
}

// New creates a Manager subscribed to t's connection events.
// Call Close to unsubscribe.
func New(log *slog.Logger, t Transport, m *metrics.Collector) *Manager {
	mgr := &Manager{
		log:       log.With("component", "lifecycle"),
		transport: t,
		metrics:   m,
	}

	mgr.unsubscribe = t.Subscribe(mgr.handleEvent)

	return mgr
}

// IsConnected reports whether the extension is attached.
func (m *Manager) IsConnected() bool {
	return m.transport.IsConnected()
}

// WaitForConnection returns once the extension is attached.
//
// It returns nil immediately when already connected. Otherwise it joins the
// shared wait, creating it with the given timeout when none is outstanding
// (timeout <= 0 means config.DefaultWaitTimeout). Concurrent callers share
// the first caller's timer. Cancelling ctx only stops this caller from
// waiting.
func (m *Manager) WaitForConnection(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = config.DefaultWaitTimeout
	}

	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()

		return errors.ErrServerClosing
	}

	// Checked under mu: an attach racing with this check runs handleEvent
	// after the transport updated its state, and handleEvent takes mu, so
	// it either is seen here or releases the wait created below.
	if m.transport.IsConnected() {
		m.mu.Unlock()

		return nil
	}

	w := m.wait
	if w == nil {
		w = &connectionWait{done: make(chan struct{})}
		w.timer = time.AfterFunc(timeout, func() {
			m.expire(w, timeout)
		})
		m.wait = w

		m.log.Info("Waiting for browser extension to connect", "timeout", timeout)
	}

	m.mu.Unlock()

	select {
	case <-w.done:
		return w.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close unsubscribes from the transport and releases any waiters with
// ErrServerClosing. Later waits fail with ErrServerClosing at once.
func (m *Manager) Close() {
	m.unsubscribe()

	m.mu.Lock()
	m.closed = true
	w := m.wait
	m.wait = nil

	if w != nil {
		w.timer.Stop()
		w.err = errors.ErrServerClosing
		close(w.done)
	}

	m.mu.Unlock()
}

func (m *Manager) handleEvent(ev transport.Event) {
	if ev.Kind != transport.EventAttached {
		return
	}

	m.mu.Lock()
	w := m.wait
	m.wait = nil

	if w != nil {
		w.timer.Stop()
		close(w.done)
	}

	m.mu.Unlock()

	if w != nil {
		m.log.Info("Browser extension connected, releasing waiters", "peer_id", ev.Peer.ID)
		m.metrics.ConnectionWait("attached")
	}
}

// expire rejects w if it is still the outstanding wait.
func (m *Manager) expire(w *connectionWait, timeout time.Duration) {
	m.mu.Lock()

	if m.wait != w {
		m.mu.Unlock()

		return
	}

	m.wait = nil
	w.err = fmt.Errorf("%w after %s", errors.ErrConnectionWaitTimeout, timeout)
	close(w.done)
	m.mu.Unlock()

	m.log.Warn("Browser extension did not connect in time", "timeout", timeout)
	m.metrics.ConnectionWait("timeout")
}
