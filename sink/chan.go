package sink

import "context"

// Chan is a Sink that queues payloads on a channel.
type Chan struct {
	ch chan []byte
}

// NewChan returns a Chan that can buffer the given number of payloads before
// Deliver starts to block.
func NewChan(capacity int) *Chan {
	return &Chan{ch: make(chan []byte, capacity)}
}

// Deliver queues the payload, blocking until there is room in the queue or
// the context is done.
func (c *Chan) Deliver(ctx context.Context, payload []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case c.ch <- payload:
		return nil
	}
}

// Payloads returns the channel from which delivered payloads can be read.
func (c *Chan) Payloads() <-chan []byte {
	return c.ch
}
