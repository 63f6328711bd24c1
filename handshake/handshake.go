// Package handshake implements the transfer of one payload from an initiator
// to a responder over a single connection.
//
//	initiator                         responder
//	    |------------ WAKEUP ------------>|
//	    |<------------- ACK --------------|
//	    |--- length-prefixed payload ---->|
//	    |<-------- ACK-<digest> ----------|
//	    |------- GOODBYE (or ERR) ------->|
//
// Every error terminates the handshake, and only the handshake. Nothing is
// retried; retrying is up to the caller.
package handshake

import (
	"bufio"
	"context"
	"io"
	"net"
	"time"

	"github.com/renproject/p2pass/codec"
)

var (
	payloadEncoder = codec.LengthPrefixEncoder(codec.PlainEncoder, codec.PlainEncoder)
)

// setDeadline applies the earlier of the timeout and the context deadline to
// the connection, and interrupts blocked I/O when the context is done. The
// returned function must be called once the handshake is over.
func setDeadline(ctx context.Context, conn net.Conn, timeout time.Duration) (func(), error) {
	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && (deadline.IsZero() || ctxDeadline.Before(deadline)) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			conn.SetDeadline(time.Now())
		case <-done:
		}
	}()
	return func() {
		close(done)
		// The deadline is only cleared once the watcher can no longer set it.
		<-exited
		conn.SetDeadline(time.Time{})
	}, nil
}

// writeFrame writes a control frame and flushes it.
func writeFrame(w *bufio.Writer, frame string) error {
	if err := codec.WriteLine(w, frame); err != nil {
		return err
	}
	return w.Flush()
}

// closeOrderly half-closes the writing side of the connection, if the
// connection supports it, and then waits for the remote peer to close its
// side. The connection itself is closed by whoever opened it.
func closeOrderly(conn net.Conn, r io.Reader) error {
	if closeWriter, ok := conn.(interface{ CloseWrite() error }); ok {
		if err := closeWriter.CloseWrite(); err != nil {
			return err
		}
	}
	_, err := io.Copy(io.Discard, r)
	return err
}
