package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPeerError(t *testing.T) {
	err := &PeerError{Code: "element_not_found", Message: "no element matches ref s1e4"}

	require.Equal(t, "element_not_found: no element matches ref s1e4", err.Error())
	require.True(t, err.IsBridgeError())
}

func TestPeerError_WithoutCode(t *testing.T) {
	err := &PeerError{Message: "tab crashed"}

	require.Equal(t, "tab crashed", err.Error())
}

func TestPeerError_As(t *testing.T) {
	var wrapped error = &PeerError{Code: "timeout", Message: "navigation timed out"}

	wrapped = errors.Join(errors.New("send browser_navigate"), wrapped)

	var peerErr *PeerError

	require.ErrorAs(t, wrapped, &peerErr)
	require.Equal(t, "timeout", peerErr.Code)
}

func TestMalformedMessageError(t *testing.T) {
	root := errors.New("unexpected end of JSON input")
	err := &MalformedMessageError{Raw: []byte(`{"id":`), Err: root}

	require.Equal(t, "malformed message: unexpected end of JSON input", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsBridgeError())
}

func TestMalformedMessageError_WithID(t *testing.T) {
	root := errors.New("missing 'success' field")
	err := &MalformedMessageError{ID: "01HZX", Err: root}

	require.Equal(t, "malformed message for call 01HZX: missing 'success' field", err.Error())
}

func TestPortInUseError(t *testing.T) {
	root := errors.New("bind: address already in use")
	err := &PortInUseError{Port: 8765, Err: root}

	require.Equal(t, "port 8765 already in use: bind: address already in use", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsBridgeError())
}

func TestInvalidArgumentsError(t *testing.T) {
	root := errors.New("missing properties: [\"url\"]")
	err := &InvalidArgumentsError{Tool: "browser_navigate", Err: root}

	require.Equal(t, `invalid arguments for browser_navigate: missing properties: ["url"]`, err.Error())
	require.ErrorIs(t, err, root)
}

func TestConnectionWaitTimeoutIsTimeout(t *testing.T) {
	require.ErrorIs(t, ErrConnectionWaitTimeout, ErrRequestTimeout)
	require.NotErrorIs(t, ErrRequestTimeout, ErrConnectionWaitTimeout)
}
