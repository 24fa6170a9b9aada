package resp

import (
	"errors"
	"io"
	"strconv"
)

var (
	// ErrIncomplete is returned by Parse when the buffer does not yet hold a
	// complete frame. It is not a failure: read more bytes and retry.
	ErrIncomplete = errors.New("resp: incomplete frame")

	// ErrProtocol is wrapped by every malformed-input error.
	ErrProtocol = errors.New("resp: protocol error")

	// ErrTruncated is returned by Reader when the stream ends in the middle
	// of a frame.
	ErrTruncated = errors.New("resp: stream ended inside a frame")
)

// ProtocolError describes malformed input. It is fatal for the connection
// that produced it.
type ProtocolError struct {
	// Offset is the position in the parsed buffer where the problem was found.
	Offset int
	Reason string
}

func (e *ProtocolError) Error() string {
	return "resp: protocol error: " + e.Reason
}

// Unwrap makes errors.Is(err, ErrProtocol) hold.
func (e *ProtocolError) Unwrap() error {
	return ErrProtocol
}

func protocolErr(off int, reason string) error {
	return &ProtocolError{Offset: off, Reason: reason}
}

// truncatedError wraps both ErrTruncated and io.ErrUnexpectedEOF.
type truncatedError struct {
	buffered int
}

func (e *truncatedError) Error() string {
	return ErrTruncated.Error() + " (" + strconv.Itoa(e.buffered) + " bytes buffered)"
}

func (e *truncatedError) Is(target error) bool {
	return target == ErrTruncated || target == io.ErrUnexpectedEOF
}
