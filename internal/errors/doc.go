// Package errors defines error types for the browser bridge.
//
// The taxonomy mirrors what a caller of the correlation transport can observe:
// a call sent with no peer attached, a call or connection wait that timed out,
// a failure reported by the peer itself, and calls rejected while the bridge is
// shutting down. Malformed inbound data is represented too, but it is only ever
// logged. All error types support unwrapping and can be checked using
// errors.Is and errors.As.
package errors
