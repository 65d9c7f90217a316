package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/browser-bridge-go/internal/errors"
	"github.com/wagiedev/browser-bridge-go/internal/metrics"
	"github.com/wagiedev/browser-bridge-go/internal/protocol"
)

// pendingCall tracks an outgoing call awaiting its reply.
type pendingCall struct {
	id        string
	operation string
	started   time.Time
	timer     *time.Timer

	// result receives exactly one value from whichever path removed the
	// entry from the pending table.
	result chan callResult
}

type callResult struct {
	reply *protocol.Reply
	err   error
}

// Send delivers a call to the extension and waits for its reply.
//
// Send fails immediately with ErrNotConnected when no extension is attached;
// the call is not queued. Otherwise it waits until the matching reply
// arrives or CallTimeout elapses (ErrRequestTimeout). A failure reply is
// returned as a PeerError. Calls still pending when Close gives up on them
// fail with ErrServerClosing.
//
// Cancelling ctx only stops this caller from waiting. The pending entry stays
// registered until its reply, its deadline, or shutdown.
func (t *Transport) Send(ctx context.Context, operation string, payload map[string]any) (*protocol.Reply, error) {
	t.mu.Lock()

	if t.closing {
		t.mu.Unlock()
		t.metrics.ObserveCall(operation, metrics.OutcomeClosing, 0)

		return nil, errors.ErrServerClosing
	}

	p := t.peer
	if p == nil {
		t.mu.Unlock()
		t.log.Debug("Call rejected, no extension attached", "operation", operation)
		t.metrics.ObserveCall(operation, metrics.OutcomeNotConnected, 0)

		return nil, errors.ErrNotConnected
	}

	id := generateCallID()
	pc := &pendingCall{
		id:        id,
		operation: operation,
		started:   time.Now(),
		result:    make(chan callResult, 1),
	}

	t.pending[id] = pc
	timeout := t.cfg.CallTimeout
	pc.timer = time.AfterFunc(timeout, func() {
		t.settle(id, callResult{err: fmt.Errorf("%w after %s", errors.ErrRequestTimeout, timeout)})
	})
	inFlight := len(t.pending)
	t.mu.Unlock()

	t.metrics.SetPending(inFlight)

	data, err := protocol.NewCall(id, operation, payload).Marshal()
	if err == nil {
		t.log.Debug("Sending call", "call_id", id, "operation", operation, "peer_id", p.info.ID)

		if writeErr := p.write(data); writeErr != nil {
			t.log.Error("Failed to send call", "call_id", id, "operation", operation, "error", writeErr)
			err = fmt.Errorf("send %s: %w", operation, writeErr)
		}
	} else {
		t.log.Error("Failed to marshal call", "call_id", id, "operation", operation, "error", err)
	}

	if err != nil {
		// Another path may already have settled the entry; either way exactly
		// one result is waiting on the channel.
		t.settle(id, callResult{err: err})
	}

	select {
	case res := <-pc.result:
		if res.err != nil {
			return nil, res.err
		}

		return res.reply, nil

	case <-ctx.Done():
		t.log.Debug("Caller stopped waiting, call remains pending", "call_id", id, "operation", operation)

		return nil, ctx.Err()
	}
}

// handleMessage correlates one inbound frame with its pending call.
func (t *Transport) handleMessage(p *peer, data []byte) {
	reply, err := protocol.ParseReply(data)
	if err != nil {
		t.log.Warn("Dropping malformed message", "peer_id", p.info.ID, "size", len(data), "error", err)
		t.metrics.MalformedMessage()

		return
	}

	t.log.Debug("Received reply", "call_id", reply.ID, "success", reply.Success)

	if !t.settle(reply.ID, callResult{reply: reply, err: reply.Err()}) {
		t.log.Warn("No pending call for reply", "call_id", reply.ID, "success", reply.Success)
		t.metrics.UnmatchedReply()
	}
}

// settle removes the pending entry for id and delivers res to its caller.
// It returns false when the entry is already gone, which makes the first
// of reply, timer, send failure, detach or shutdown the sole resolver.
func (t *Transport) settle(id string, res callResult) bool {
	t.mu.Lock()

	pc, ok := t.pending[id]
	if !ok {
		t.mu.Unlock()

		return false
	}

	delete(t.pending, id)
	pc.timer.Stop()

	inFlight := len(t.pending)
	if inFlight == 0 && t.drained != nil {
		close(t.drained)
		t.drained = nil
	}

	t.mu.Unlock()

	t.metrics.SetPending(inFlight)
	t.deliver(pc, res)

	return true
}

// takeAllLocked empties the pending table. Caller must hold t.mu.
func (t *Transport) takeAllLocked() []*pendingCall {
	if len(t.pending) == 0 {
		return nil
	}

	taken := make([]*pendingCall, 0, len(t.pending))
	for id, pc := range t.pending {
		pc.timer.Stop()
		taken = append(taken, pc)

		delete(t.pending, id)
	}

	if t.drained != nil {
		close(t.drained)
		t.drained = nil
	}

	return taken
}

// deliver hands res to the waiting caller. The entry must already be
// removed from the pending table.
func (t *Transport) deliver(pc *pendingCall, res callResult) {
	outcome := outcomeOf(res.err)
	elapsed := time.Since(pc.started)

	if stderrors.Is(res.err, errors.ErrRequestTimeout) {
		t.log.Warn("Call timed out", "call_id", pc.id, "operation", pc.operation, "elapsed", elapsed)
	} else {
		t.log.Debug("Call settled", "call_id", pc.id, "operation", pc.operation, "outcome", outcome, "elapsed", elapsed)
	}

	t.metrics.ObserveCall(pc.operation, outcome, elapsed)

	pc.result <- res
}

func outcomeOf(err error) string {
	var peerErr *errors.PeerError

	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case stderrors.As(err, &peerErr):
		return metrics.OutcomePeerError
	case stderrors.Is(err, errors.ErrRequestTimeout):
		return metrics.OutcomeTimeout
	case stderrors.Is(err, errors.ErrServerClosing):
		return metrics.OutcomeClosing
	case stderrors.Is(err, errors.ErrPeerDisconnected):
		return metrics.OutcomeDisconnected
	default:
		return metrics.OutcomeSendFailed
	}
}

// generateCallID creates a unique call ID using ULID.
func generateCallID() string {
	return ulid.Make().String()
}
