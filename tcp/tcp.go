// Package tcp runs the accept loop of a responder and dials initiators.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/renproject/p2pass/policy"
)

// Listen for connections from remote peers until the context is done. The
// allow function controls the acceptance/rejection of connections, and can be
// used to implement maximum connection limits, per-IP rate-limiting, and so
// on. Every accepted connection is handled in its own background goroutine, and
// is closed once the handle function returns. This function blocks until the
// context is done and all handle functions have returned.
func Listen(ctx context.Context, address string, handle func(context.Context, net.Conn), handleErr func(error), allow policy.Allow) error {
	listener, err := new(net.ListenConfig).Listen(ctx, "tcp", address)
	if err != nil {
		return err
	}
	return ListenWithListener(ctx, listener, handle, handleErr, allow)
}

// ListenWithListener is the same as Listen, but accepts connections from an
// existing listener.
//
// NOTE: The listener passed to this function will be closed when the given
// context finishes.
func ListenWithListener(ctx context.Context, listener net.Listener, handle func(context.Context, net.Conn), handleErr func(error), allow policy.Allow) error {
	if handle == nil {
		return fmt.Errorf("nil handle function")
	}
	if handleErr == nil {
		handleErr = func(error) {}
	}

	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			handleErr(fmt.Errorf("close listener: %v", err))
		}
	}()

	wg := new(sync.WaitGroup)
	defer wg.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			handleErr(fmt.Errorf("accept connection: %v", err))
			continue
		}

		var cleanup policy.Cleanup
		if allow != nil {
			var err error
			if cleanup, err = allow(conn); err != nil {
				handleErr(fmt.Errorf("filter connection from %v: %w", conn.RemoteAddr(), err))
				if cleanup != nil {
					cleanup()
				}
				if err := conn.Close(); err != nil {
					handleErr(fmt.Errorf("close connection: %v", err))
				}
				continue
			}
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if cleanup != nil {
					cleanup()
				}
			}()
			defer func() {
				if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
					handleErr(fmt.Errorf("close connection: %v", err))
				}
			}()
			handle(ctx, conn)
		}()
	}
}

// ListenerWithAssignedPort returns a listener on the given IP, and the port
// that the operating system assigned to it.
func ListenerWithAssignedPort(ctx context.Context, ip net.IP) (net.Listener, int, error) {
	listener, err := new(net.ListenConfig).Listen(ctx, "tcp", net.JoinHostPort(ip.String(), "0"))
	if err != nil {
		return nil, 0, err
	}
	port := listener.Addr().(*net.TCPAddr).Port
	return listener, port, nil
}

// Dial a remote peer once, and handle the connection. The timeout bounds the
// dial attempt only. This function blocks until the handle function returns,
// and then closes the connection. No attempt is retried.
func Dial(ctx context.Context, address string, handle func(net.Conn) error, timeout time.Duration) error {
	if handle == nil {
		return fmt.Errorf("nil handle function")
	}

	dialer := new(net.Dialer)
	dialCtx := ctx
	if timeout > 0 {
		var dialCancel context.CancelFunc
		dialCtx, dialCancel = context.WithTimeout(ctx, timeout)
		defer dialCancel()
	}
	conn, err := dialer.DialContext(dialCtx, "tcp", address)
	if err != nil {
		return err
	}

	handleErr := handle(conn)
	if err := conn.Close(); err != nil && handleErr == nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close connection: %w", err)
	}
	return handleErr
}
