package handshake

import (
	"bufio"
	"context"
	"errors"
	"net"
	"unicode/utf8"

	"github.com/renproject/p2pass/codec"
	"go.uber.org/zap"
)

// A Transfer describes the outcome of a handshake from the point of view of the
// responder.
type Transfer struct {
	// Payload is only set when the State is Delivered.
	Payload []byte
	Digest  Digest
	State   State
}

// Accept a handshake from the initiator on the other end of the connection. A
// nil error means that the handshake completed: the Transfer is either
// Delivered, and its Payload should be handed on, or Rejected by the
// initiator. The connection is not closed.
func Accept(ctx context.Context, conn net.Conn, opts Options) (Transfer, error) {
	opts = opts.withDefaults()
	transfer := Transfer{State: AwaitingWakeup}

	cleanup, err := setDeadline(ctx, conn, opts.Timeout)
	if err != nil {
		return transfer, NewErrTransportFailure(transfer.State, "setting deadline", err)
	}
	defer cleanup()

	logger := opts.Logger.With(zap.String("remote", conn.RemoteAddr().String()))
	transition := func(state State) {
		transfer.State = state
		logger.Debug("responder", zap.Stringer("state", state))
	}

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	if _, err := codec.ReadLineOneOf(r, opts.MaxLineLength, FrameWakeup); err != nil {
		return transfer, lineError(transfer.State, "reading wakeup", FrameWakeup, err, NewErrProtocolViolation)
	}
	transition(Acking)

	if err := writeFrame(w, FrameAck); err != nil {
		return transfer, NewErrTransportFailure(transfer.State, "writing ack", err)
	}
	transition(ReceivingPayload)

	payload, err := codec.ReadLengthPrefixed(r, codec.PlainDecoder, opts.MaxPayloadSize)
	if err != nil {
		var errTooLarge codec.ErrTooLarge
		if errors.As(err, &errTooLarge) {
			return transfer, NewErrPayloadTooLarge(uint64(errTooLarge.Size), errTooLarge.Max)
		}
		return transfer, NewErrTransportFailure(transfer.State, "reading payload", err)
	}
	if opts.RequireText && !utf8.Valid(payload) {
		return transfer, NewErrInvalidEncoding(invalidUTF8Offset(payload))
	}
	transition(AckingIntegrity)

	transfer.Digest = opts.Digest(payload)
	if err := writeFrame(w, FrameIntegrityAckPrefix+transfer.Digest.String()); err != nil {
		return transfer, NewErrTransportFailure(transfer.State, "writing integrity ack", err)
	}
	transition(AwaitingFarewell)

	line, err := codec.ReadLineOneOf(r, opts.MaxLineLength, FrameGoodbye, FrameErr)
	if err != nil {
		return transfer, lineError(transfer.State, "reading farewell", FrameGoodbye+"|"+FrameErr, err, NewErrProtocolViolation)
	}
	if line == FrameGoodbye {
		transfer.Payload = payload
		transition(Delivered)
	} else {
		transition(Rejected)
	}
	return transfer, nil
}

func invalidUTF8Offset(b []byte) int {
	offset := 0
	for offset < len(b) {
		r, size := utf8.DecodeRune(b[offset:])
		if r == utf8.RuneError && size == 1 {
			return offset
		}
		offset += size
	}
	return offset
}
