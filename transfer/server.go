// Package transfer moves single payloads between peers. A Server accepts
// handshakes and hands delivered payloads to a sink; a Client dials peers and
// initiates handshakes.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/renproject/p2pass/handshake"
	"github.com/renproject/p2pass/policy"
	"github.com/renproject/p2pass/sink"
	"github.com/renproject/p2pass/tcp"
	"go.uber.org/zap"
)

// A Server accepts connections, runs the responder side of the handshake on
// each of them, and delivers every payload that reaches the Delivered state to
// its sink. A failed handshake only ever affects its own connection.
type Server struct {
	opts  ServerOptions
	sink  sink.Sink
	allow policy.Allow
}

func NewServer(opts ServerOptions, sink sink.Sink) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxConns == 0 {
		opts.MaxConns = DefaultServerMaxConns
	}
	if opts.RateLimit > 0 && opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = DefaultConnRateLimitBurst
	}
	if opts.RateLimitCapacity <= 0 {
		opts.RateLimitCapacity = DefaultRateLimitCapacity
	}
	allow := policy.Max(opts.MaxConns)
	if opts.RateLimit > 0 {
		allow = policy.All(allow, policy.RateLimit(opts.RateLimit, opts.RateLimitBurst, opts.RateLimitCapacity))
	}
	return &Server{
		opts:  opts,
		sink:  sink,
		allow: allow,
	}
}

// Options returns the Options used to configure the Server. Changing the
// Options returned by the method will have no affect on the behaviour of the
// Server.
func (server *Server) Options() ServerOptions {
	return server.opts
}

// Listen for incoming connections on the configured host and port until the
// context is done.
func (server *Server) Listen(ctx context.Context) error {
	address := net.JoinHostPort(server.opts.Host, fmt.Sprint(server.opts.Port))
	listener, err := new(net.ListenConfig).Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listening on %v: %v", address, err)
	}
	return server.ListenWithListener(ctx, listener)
}

// ListenWithListener is the same as Listen, but accepts connections from an
// existing listener. The listener is closed when the context is done. It
// returns nil once the context is done and every in-flight handshake has
// finished.
func (server *Server) ListenWithListener(ctx context.Context, listener net.Listener) error {
	server.opts.Logger.Info("listening", zap.String("address", listener.Addr().String()))

	err := tcp.ListenWithListener(
		ctx,
		listener,
		server.handle,
		func(err error) { server.opts.Logger.Warn("connection", zap.Error(err)) },
		server.allow,
	)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		// Cancelling the context is the expected way to stop listening.
		return nil
	}
	return err
}

func (server *Server) handle(ctx context.Context, conn net.Conn) {
	logger := server.opts.Logger.With(
		zap.String("conn", uuid.NewString()),
		zap.String("remote", conn.RemoteAddr().String()))

	// A handshake that has started runs to completion, bounded only by the
	// handshake timeout, even when the server stops listening.
	ctx = context.WithoutCancel(ctx)

	transfer, err := handshake.Accept(ctx, conn, server.opts.Handshake.WithLogger(logger))
	if err != nil {
		logger.Error("accepting handshake", zap.Stringer("state", transfer.State), zap.Error(err))
		return
	}
	if transfer.State != handshake.Delivered {
		logger.Info("rejected by initiator", zap.Stringer("digest", transfer.Digest))
		return
	}

	if timeout := server.opts.Handshake.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := server.sink.Deliver(ctx, transfer.Payload); err != nil {
		logger.Error("delivering payload", zap.Stringer("digest", transfer.Digest), zap.Error(err))
		abort(conn, logger)
		return
	}
	logger.Info("delivered", zap.Stringer("digest", transfer.Digest), zap.Int("size", len(transfer.Payload)))
}

// abort makes the connection close with a reset instead of an orderly
// shutdown, so that the initiator does not mistake an undelivered payload for
// a delivered one.
func abort(conn net.Conn, logger *zap.Logger) {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	if err := tcpConn.SetLinger(0); err != nil {
		logger.Warn("aborting connection", zap.Error(err))
	}
}
