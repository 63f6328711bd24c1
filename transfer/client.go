package transfer

import (
	"context"
	"fmt"
	"net"

	"github.com/renproject/p2pass/handshake"
	"github.com/renproject/p2pass/peerid"
	"github.com/renproject/p2pass/tcp"
	"github.com/renproject/phi"
	"go.uber.org/zap"
)

// A Client sends payloads to peers. Every send dials a new connection, runs
// the initiator side of the handshake, and closes the connection. Nothing is
// retried.
type Client struct {
	opts ClientOptions
}

func NewClient(opts ClientOptions) *Client {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{opts: opts}
}

// Options returns the Options used to configure the Client.
func (client *Client) Options() ClientOptions {
	return client.opts
}

// Send the payload to the peer at the given address. It blocks until the
// handshake has finished. The Receipt is returned even when there is an error,
// so that the caller can see how far the handshake progressed.
func (client *Client) Send(ctx context.Context, addr peerid.Address, payload []byte) (handshake.Receipt, error) {
	receipt := handshake.Receipt{State: handshake.Idle}
	if !addr.IsValid() {
		return receipt, fmt.Errorf("sending to invalid address")
	}
	logger := client.opts.Logger.With(zap.String("remote", addr.String()))

	err := tcp.Dial(ctx, addr.String(), func(conn net.Conn) error {
		var err error
		receipt, err = handshake.Initiate(ctx, conn, payload, client.opts.Handshake.WithLogger(logger))
		return err
	}, client.opts.DialTimeout)
	if err != nil {
		logger.Debug("sending", zap.Stringer("state", receipt.State), zap.Error(err))
		return receipt, err
	}
	logger.Debug("sent", zap.Stringer("digest", receipt.Digest), zap.Int("size", len(payload)))
	return receipt, nil
}

// SendToken decodes the token and sends the payload to the peer that it
// identifies.
func (client *Client) SendToken(ctx context.Context, token string, payload []byte) (handshake.Receipt, error) {
	addr, err := peerid.Decode(token)
	if err != nil {
		return handshake.Receipt{State: handshake.Idle}, err
	}
	return client.Send(ctx, addr, payload)
}

// A Result is the outcome of sending a payload to one of many peers.
type Result struct {
	Addr    peerid.Address
	Receipt handshake.Receipt
	Err     error
}

// SendEach sends the payload to every address in parallel, using an
// independent handshake for each one. The results are in the same order as
// the addresses. A failure to send to one peer does not affect the others.
func (client *Client) SendEach(ctx context.Context, addrs []peerid.Address, payload []byte) []Result {
	results := make([]Result, len(addrs))
	phi.ParForAll(addrs, func(i int) {
		receipt, err := client.Send(ctx, addrs[i], payload)
		results[i] = Result{Addr: addrs[i], Receipt: receipt, Err: err}
	})
	return results
}
