package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/wagiedev/browser-bridge-go/internal/errors"
)

// ParseReply decodes raw inbound data into a Reply.
//
// The decode is tagged on the "success" field: a successful reply must carry
// a "result" key (null is allowed) and a failed reply must carry an "error"
// object with string "code" and "message" fields. Any other shape returns a
// MalformedMessageError; its ID is filled in when the id could be read so the
// failure can still be traced in logs.
func ParseReply(data []byte) (*Reply, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, malformed("", data, fmt.Errorf("decode JSON object: %w", err))
	}

	id, err := stringField(fields, "id")
	if err != nil {
		return nil, malformed("", data, err)
	}

	if id == "" {
		return nil, malformed("", data, fmt.Errorf("empty 'id' field"))
	}

	rawSuccess, ok := fields["success"]
	if !ok {
		return nil, malformed(id, data, fmt.Errorf("missing 'success' field"))
	}

	var success bool
	if err := json.Unmarshal(rawSuccess, &success); err != nil {
		return nil, malformed(id, data, fmt.Errorf("'success' is not a boolean"))
	}

	if success {
		result, ok := fields["result"]
		if !ok {
			return nil, malformed(id, data, fmt.Errorf("success reply missing 'result' field"))
		}

		return &Reply{ID: id, Success: true, Result: result}, nil
	}

	replyErr, err := parseReplyError(fields)
	if err != nil {
		return nil, malformed(id, data, err)
	}

	return &Reply{ID: id, Success: false, Error: replyErr}, nil
}

// parseReplyError extracts the nested error object of a failed reply.
func parseReplyError(fields map[string]json.RawMessage) (*ReplyError, error) {
	rawErr, ok := fields["error"]
	if !ok {
		return nil, fmt.Errorf("failure reply missing 'error' field")
	}

	var errFields map[string]json.RawMessage
	if err := json.Unmarshal(rawErr, &errFields); err != nil || errFields == nil {
		return nil, fmt.Errorf("'error' is not an object")
	}

	code, err := stringField(errFields, "code")
	if err != nil {
		return nil, fmt.Errorf("error: %w", err)
	}

	message, err := stringField(errFields, "message")
	if err != nil {
		return nil, fmt.Errorf("error: %w", err)
	}

	return &ReplyError{Code: code, Message: message}, nil
}

// stringField reads a required string field.
func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok {
		return "", fmt.Errorf("missing '%s' field", name)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("'%s' is not a string", name)
	}

	return s, nil
}

func malformed(id string, data []byte, err error) error {
	return &errors.MalformedMessageError{
		ID:  id,
		Raw: data,
		Err: err,
	}
}
