package errors

import (
	"errors"
	"fmt"
)

// BridgeError is the base interface for all typed bridge errors.
type BridgeError interface {
	error
	IsBridgeError() bool
}

// Compile-time verification that all error types implement BridgeError.
var (
	_ BridgeError = (*PeerError)(nil)
	_ BridgeError = (*MalformedMessageError)(nil)
	_ BridgeError = (*PortInUseError)(nil)
	_ BridgeError = (*InvalidArgumentsError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotConnected indicates a call was sent while no browser extension was attached.
	ErrNotConnected = errors.New("browser extension not connected")

	// ErrRequestTimeout indicates no reply arrived before the call deadline.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrConnectionWaitTimeout indicates no extension attached within the wait window.
	// It matches ErrRequestTimeout with errors.Is.
	ErrConnectionWaitTimeout = fmt.Errorf("%w: waiting for browser extension connection", ErrRequestTimeout)

	// ErrServerClosing indicates the call was rejected because the bridge is shutting down.
	ErrServerClosing = errors.New("server closing")

	// ErrPeerDisconnected indicates the extension detached while the call was pending.
	// Only produced when the fail-pending-on-detach policy is enabled.
	ErrPeerDisconnected = errors.New("browser extension disconnected")

	// ErrAlreadyListening indicates Listen was called twice on the same transport.
	ErrAlreadyListening = errors.New("transport already listening")

	// ErrUnknownTool indicates a tool name that is not in the registry.
	ErrUnknownTool = errors.New("unknown tool")
)

// PeerError is a failure reported by the browser extension for a specific call.
// Code and Message are passed through verbatim.
type PeerError struct {
	Code    string
	Message string
}

func (e *PeerError) Error() string {
	if e.Code == "" {
		return e.Message
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsBridgeError implements BridgeError.
func (e *PeerError) IsBridgeError() bool { return true }

// MalformedMessageError indicates inbound data that could not be decoded as a reply.
type MalformedMessageError struct {
	// ID is the call identifier, when one could be extracted.
	ID  string
	Raw []byte
	Err error
}

func (e *MalformedMessageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("malformed message for call %s: %v", e.ID, e.Err)
	}

	return fmt.Sprintf("malformed message: %v", e.Err)
}

func (e *MalformedMessageError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *MalformedMessageError) IsBridgeError() bool { return true }

// PortInUseError indicates the listening port is already bound by another process.
type PortInUseError struct {
	Port int
	Err  error
}

func (e *PortInUseError) Error() string {
	return fmt.Sprintf("port %d already in use: %v", e.Port, e.Err)
}

func (e *PortInUseError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *PortInUseError) IsBridgeError() bool { return true }

// InvalidArgumentsError indicates tool arguments that failed schema validation.
type InvalidArgumentsError struct {
	Tool string
	Err  error
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Tool, e.Err)
}

func (e *InvalidArgumentsError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *InvalidArgumentsError) IsBridgeError() bool { return true }
