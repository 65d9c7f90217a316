package browserbridge

import "github.com/wagiedev/browser-bridge-go/internal/errors"

// Re-export error types from internal package

// BridgeError is the base interface for all typed bridge errors.
type BridgeError = errors.BridgeError

// PeerError is a failure reported by the browser extension.
type PeerError = errors.PeerError

// MalformedMessageError indicates an undecodable message from the extension.
type MalformedMessageError = errors.MalformedMessageError

// PortInUseError indicates the bridge port is held by another process.
type PortInUseError = errors.PortInUseError

// InvalidArgumentsError indicates tool arguments that failed validation.
type InvalidArgumentsError = errors.InvalidArgumentsError

// Re-export sentinel errors from internal package.
var (
	// ErrNotConnected indicates no browser extension is attached.
	ErrNotConnected = errors.ErrNotConnected

	// ErrRequestTimeout indicates a call got no reply in time.
	ErrRequestTimeout = errors.ErrRequestTimeout

	// ErrConnectionWaitTimeout indicates the extension did not attach in time.
	ErrConnectionWaitTimeout = errors.ErrConnectionWaitTimeout

	// ErrServerClosing indicates the bridge is shutting down.
	ErrServerClosing = errors.ErrServerClosing

	// ErrPeerDisconnected indicates the extension left with the call pending.
	ErrPeerDisconnected = errors.ErrPeerDisconnected

	// ErrAlreadyListening indicates Start was called twice.
	ErrAlreadyListening = errors.ErrAlreadyListening

	// ErrUnknownTool indicates a tool name that is not registered.
	ErrUnknownTool = errors.ErrUnknownTool
)
