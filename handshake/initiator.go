package handshake

import (
	"bufio"
	"context"
	"net"
	"strings"

	"github.com/renproject/p2pass/codec"
	"go.uber.org/zap"
)

// A Receipt describes the outcome of a handshake from the point of view of the
// initiator.
type Receipt struct {
	// Digest of the payload that was sent.
	Digest Digest
	// Remote is the digest acknowledged by the responder.
	Remote string
	State  State
}

// Initiate a handshake over an established connection and transfer the
// payload. It blocks until the responder has closed its side of the
// connection, or until the handshake fails. The connection is not closed.
//
// When the Confirm function of the Options rejects the integrity
// acknowledgement, ERR is sent instead of GOODBYE, and the Receipt is returned
// in the Rejected state along with the error returned by Confirm.
func Initiate(ctx context.Context, conn net.Conn, payload []byte, opts Options) (Receipt, error) {
	opts = opts.withDefaults()
	receipt := Receipt{State: Idle}

	if uint64(len(payload)) > uint64(opts.MaxPayloadSize) {
		return receipt, NewErrPayloadTooLarge(uint64(len(payload)), opts.MaxPayloadSize)
	}

	cleanup, err := setDeadline(ctx, conn, opts.Timeout)
	if err != nil {
		return receipt, NewErrTransportFailure(receipt.State, "setting deadline", err)
	}
	defer cleanup()

	logger := opts.Logger.With(zap.String("remote", conn.RemoteAddr().String()))
	transition := func(state State) {
		receipt.State = state
		logger.Debug("initiator", zap.Stringer("state", state))
	}

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	if err := writeFrame(w, FrameWakeup); err != nil {
		return receipt, NewErrTransportFailure(receipt.State, "writing wakeup", err)
	}
	transition(AwaitingWakeupAck)

	line, err := codec.ReadLine(r, opts.MaxLineLength)
	if err != nil {
		return receipt, lineError(receipt.State, "reading ack", FrameAck, err, NewErrUnexpectedResponse)
	}
	if line != FrameAck {
		return receipt, NewErrUnexpectedResponse(receipt.State, FrameAck, line)
	}
	transition(Sending)

	if _, err := payloadEncoder(w, payload); err != nil {
		return receipt, NewErrTransportFailure(receipt.State, "writing payload", err)
	}
	if err := w.Flush(); err != nil {
		return receipt, NewErrTransportFailure(receipt.State, "writing payload", err)
	}
	receipt.Digest = opts.Digest(payload)
	transition(AwaitingIntegrityAck)

	line, err = codec.ReadLine(r, opts.MaxLineLength)
	if err != nil {
		return receipt, lineError(receipt.State, "reading integrity ack", FrameIntegrityAckPrefix+"<digest>", err, NewErrUnexpectedResponse)
	}
	if !strings.HasPrefix(line, FrameIntegrityAckPrefix) || len(line) == len(FrameIntegrityAckPrefix) {
		return receipt, NewErrUnexpectedResponse(receipt.State, FrameIntegrityAckPrefix+"<digest>", line)
	}
	receipt.Remote = strings.TrimPrefix(line, FrameIntegrityAckPrefix)

	if confirmErr := opts.Confirm(receipt.Digest, receipt.Remote); confirmErr != nil {
		logger.Debug("rejecting", zap.Stringer("digest", receipt.Digest), zap.String("remoteDigest", receipt.Remote), zap.Error(confirmErr))
		if err := writeFrame(w, FrameErr); err != nil {
			return receipt, NewErrTransportFailure(receipt.State, "writing err", err)
		}
		if err := closeOrderly(conn, r); err != nil {
			return receipt, NewErrTransportFailure(receipt.State, "closing", err)
		}
		transition(Rejected)
		return receipt, confirmErr
	}

	if err := writeFrame(w, FrameGoodbye); err != nil {
		return receipt, NewErrTransportFailure(receipt.State, "writing goodbye", err)
	}
	if err := closeOrderly(conn, r); err != nil {
		return receipt, NewErrTransportFailure(receipt.State, "closing", err)
	}
	transition(ClosingClean)
	return receipt, nil
}
