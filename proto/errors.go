package proto

import "fmt"

var (
	// ErrConnectionClosed indicates an orderly shutdown by the peer.
	ErrConnectionClosed = fmt.Errorf("connection closed")
)

// MalformedError reports bytes between terminators that did not decode to a
// valid document. The offending frame is discarded; the connection stays open.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string { return fmt.Sprintf("malformed message: %s", e.Reason) }

// ProtocolError reports a well-formed document that is semantically invalid
// for the session's current state.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return e.Reason }

// UnknownMessageError reports a document whose type selects no handler.
type UnknownMessageError struct {
	Type PacketType
}

func (e *UnknownMessageError) Error() string {
	return fmt.Sprintf("unknown message type: %q", string(e.Type))
}

func Malformed(format string, args ...interface{}) error {
	return &MalformedError{Reason: fmt.Sprintf(format, args...)}
}

func Violation(format string, args ...interface{}) error {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}
