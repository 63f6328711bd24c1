package handshake

import (
	"errors"
	"fmt"

	"github.com/renproject/p2pass/codec"
)

// ErrProtocolViolation is returned by the responder when a control frame does
// not match the frame expected in its current state.
type ErrProtocolViolation struct {
	error
	State    State
	Expected string
	Got      string
}

// NewErrProtocolViolation creates a new error which is returned when the
// initiator sends an unexpected control frame.
func NewErrProtocolViolation(state State, expected, got string) error {
	return ErrProtocolViolation{
		error:    fmt.Errorf("protocol violation in state=%v: expected %q, got %q", state, expected, got),
		State:    state,
		Expected: expected,
		Got:      got,
	}
}

// ErrUnexpectedResponse is returned by the initiator when a control frame does
// not match the frame expected in its current state.
type ErrUnexpectedResponse struct {
	error
	State    State
	Expected string
	Got      string
}

// NewErrUnexpectedResponse creates a new error which is returned when the
// responder sends an unexpected control frame.
func NewErrUnexpectedResponse(state State, expected, got string) error {
	return ErrUnexpectedResponse{
		error:    fmt.Errorf("unexpected response in state=%v: expected %q, got %q", state, expected, got),
		State:    state,
		Expected: expected,
		Got:      got,
	}
}

// ErrInvalidEncoding is returned by the responder when text is required, but
// the payload is not valid utf-8.
type ErrInvalidEncoding struct {
	error
	Offset int
}

// NewErrInvalidEncoding creates a new error which is returned when the payload
// contains an invalid utf-8 sequence at the given offset.
func NewErrInvalidEncoding(offset int) error {
	return ErrInvalidEncoding{
		error:  fmt.Errorf("invalid utf-8 payload at offset=%d", offset),
		Offset: offset,
	}
}

// ErrPayloadTooLarge is returned when a payload is larger than the maximum
// payload size.
type ErrPayloadTooLarge struct {
	error
	Size uint64
	Max  uint32
}

// NewErrPayloadTooLarge creates a new error which is returned when a payload
// exceeds the maximum payload size.
func NewErrPayloadTooLarge(size uint64, max uint32) error {
	return ErrPayloadTooLarge{
		error: fmt.Errorf("payload size=%d exceeds max=%d", size, max),
		Size:  size,
		Max:   max,
	}
}

// ErrDigestMismatch is returned by the initiator when the digest acknowledged
// by the responder differs from the digest of the payload that was sent.
type ErrDigestMismatch struct {
	error
	Local  string
	Remote string
}

// NewErrDigestMismatch creates a new error which is returned when the local
// and remote digests differ.
func NewErrDigestMismatch(local, remote string) error {
	return ErrDigestMismatch{
		error:  fmt.Errorf("digest mismatch: local=%v, remote=%v", local, remote),
		Local:  local,
		Remote: remote,
	}
}

// ErrTransportFailure is returned when the underlying connection fails to
// read, write, or close.
type ErrTransportFailure struct {
	error
	State State
	Op    string
	Err   error
}

// NewErrTransportFailure creates a new error which is returned when an I/O
// operation fails.
func NewErrTransportFailure(state State, op string, err error) error {
	return ErrTransportFailure{
		error: fmt.Errorf("%v in state=%v: %v", op, state, err),
		State: state,
		Op:    op,
		Err:   err,
	}
}

// Unwrap returns the I/O error that caused the failure.
func (err ErrTransportFailure) Unwrap() error {
	return err.Err
}

// lineError maps an error returned by the line codec to an error of the handshake
// taxonomy. Oversized and unexpected lines are attributed to the peer using the given
// constructor, everything else is a transport failure.
func lineError(state State, op, expected string, err error, peerErr func(State, string, string) error) error {
	if errors.As(err, new(codec.ErrLineTooLong)) {
		return peerErr(state, expected, err.Error())
	}
	var errUnexpected codec.ErrUnexpectedLine
	if errors.As(err, &errUnexpected) {
		return peerErr(state, expected, errUnexpected.Got)
	}
	return NewErrTransportFailure(state, op, err)
}
