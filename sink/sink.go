// Package sink defines where delivered payloads go. A Sink is the only state
// shared between the goroutines that handle transfers, so every implementation
// must be safe for concurrent use.
package sink

import "context"

// A Sink accepts one complete payload per delivered transfer. The order of
// payloads from concurrent transfers is unspecified.
type Sink interface {
	Deliver(ctx context.Context, payload []byte) error
}

// Func adapts a function into a Sink. The function must be safe for
// concurrent use.
type Func func(ctx context.Context, payload []byte) error

// Deliver implements the Sink interface.
func (f Func) Deliver(ctx context.Context, payload []byte) error {
	return f(ctx, payload)
}
