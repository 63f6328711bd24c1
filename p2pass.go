// Package p2pass re-exports the types and constructors that most users of the
// library need: tokens for peer addresses, a Server that receives payloads, and
// a Client that sends them.
package p2pass

import (
	"context"

	"github.com/renproject/p2pass/handshake"
	"github.com/renproject/p2pass/peerid"
	"github.com/renproject/p2pass/sink"
	"github.com/renproject/p2pass/transfer"
)

type (
	Address = peerid.Address
	Codec   = peerid.Codec

	Receipt          = handshake.Receipt
	Transfer         = handshake.Transfer
	State            = handshake.State
	HandshakeOptions = handshake.Options
	Digest           = handshake.Digest

	Sink = sink.Sink

	Server        = transfer.Server
	ServerOptions = transfer.ServerOptions
	Client        = transfer.Client
	ClientOptions = transfer.ClientOptions
	Result        = transfer.Result
)

var (
	NewAddress   = peerid.NewAddress
	ParseAddress = peerid.ParseAddress
	Encode       = peerid.Encode
	Decode       = peerid.Decode

	DefaultHandshakeOptions = handshake.DefaultOptions
	DefaultServerOptions    = transfer.DefaultServerOptions
	DefaultClientOptions    = transfer.DefaultClientOptions

	NewServer = transfer.NewServer
	NewClient = transfer.NewClient
)

// Serve payloads on the configured host and port until the context is done.
// Every delivered payload is handed to the sink.
func Serve(ctx context.Context, opts ServerOptions, s Sink) error {
	return NewServer(opts, s).Listen(ctx)
}

// Send the payload to the peer identified by the token.
func Send(ctx context.Context, opts ClientOptions, token string, payload []byte) (Receipt, error) {
	return NewClient(opts).SendToken(ctx, token, payload)
}
