package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/wagiedev/browser-bridge-go/internal/errors"
)

// Call is a single request sent to the browser extension.
//
// Wire format:
//
//	{
//	  "id": "01J9ZQ4W3N6V8K2M5R7T0XYZAB",
//	  "type": "browser_click",
//	  "payload": {"element": "Submit button", "ref": "s1e12"}
//	}
type Call struct {
	// ID uniquely identifies this call for reply correlation.
	ID string `json:"id"`

	// Type is the operation name the extension dispatches on.
	Type string `json:"type"`

	// Payload holds the operation arguments.
	Payload map[string]any `json:"payload"`
}

// NewCall builds a Call. A nil payload is sent as an empty object.
func NewCall(id, operation string, payload map[string]any) *Call {
	if payload == nil {
		payload = map[string]any{}
	}

	return &Call{
		ID:      id,
		Type:    operation,
		Payload: payload,
	}
}

// Marshal encodes the call as one wire message.
func (c *Call) Marshal() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal call %s: %w", c.ID, err)
	}

	return data, nil
}

// ReplyError is the failure detail of an unsuccessful reply.
type ReplyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Reply is the extension's answer to a Call.
//
// Exactly one of Result (when Success is true) or Error (when Success is
// false) is meaningful. Result keeps the raw JSON so callers can decode it
// into whatever shape the operation defines.
type Reply struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ReplyError     `json:"error,omitempty"`
}

// Err returns the peer-reported failure as a PeerError, or nil for a success reply.
func (r *Reply) Err() error {
	if r.Success {
		return nil
	}

	if r.Error == nil {
		return &errors.PeerError{Message: "unknown error"}
	}

	return &errors.PeerError{Code: r.Error.Code, Message: r.Error.Message}
}

// IsNullResult reports whether the reply carries no result value.
func (r *Reply) IsNullResult() bool {
	return len(r.Result) == 0 || string(r.Result) == "null"
}

// DecodeResult unmarshals the reply result into v.
func (r *Reply) DecodeResult(v any) error {
	if r.IsNullResult() {
		return nil
	}

	if err := json.Unmarshal(r.Result, v); err != nil {
		return fmt.Errorf("decode result of call %s: %w", r.ID, err)
	}

	return nil
}
