package policy

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a connection is dropped because its IP
// address has exceeded its rate limit for connection attempts.
var ErrRateLimited = errors.New("rate limited")

// ErrMaxConnectionsExceeded is returned when a connection is dropped because
// the maximum number of concurrent connections has been reached.
var ErrMaxConnectionsExceeded = errors.New("max connections exceeded")

// Allow is a function that filters connections. If an error is returned, the
// connection is closed. Otherwise, it is served. A clean-up function may also
// be returned; it is called after the connection is closed, regardless of
// whether the closure was caused by filtering or normal control-flow.
type Allow func(net.Conn) (Cleanup, error)

// Cleanup reverses per-connection state mutations done by an Allow function.
type Cleanup func()

// All returns an Allow function that only passes a connection if all Allow
// functions pass for that connection. Execution is lazy; when one of the Allow
// functions returns an error, no more Allow functions are called.
func All(fs ...Allow) Allow {
	return func(conn net.Conn) (Cleanup, error) {
		cleanup := Cleanup(func() {})
		for _, f := range fs {
			cleanupF, err := f(conn)
			cleanup = chain(cleanup, cleanupF)
			if err != nil {
				return cleanup, err
			}
		}
		return cleanup, nil
	}
}

// Any returns an Allow function that passes a connection if any Allow function
// passes for that connection. Execution is not lazy; every Allow function is
// called so that all of their clean-up functions are collected.
func Any(fs ...Allow) Allow {
	return func(conn net.Conn) (Cleanup, error) {
		cleanup := Cleanup(func() {})
		ok := len(fs) == 0
		errs := make([]string, 0, len(fs))
		for _, f := range fs {
			cleanupF, err := f(conn)
			cleanup = chain(cleanup, cleanupF)
			if err == nil {
				ok = true
				continue
			}
			errs = append(errs, err.Error())
		}
		if ok {
			return cleanup, nil
		}
		return cleanup, fmt.Errorf("%v", strings.Join(errs, ", "))
	}
}

func chain(first, second Cleanup) Cleanup {
	if second == nil {
		return first
	}
	return func() {
		second()
		first()
	}
}

// RateLimit returns an Allow function that rejects an IP address if it
// attempts too many connections too quickly. At most cap limiters are kept;
// once the front half is full it is rotated into the back half, and the oldest
// limiters are forgotten.
func RateLimit(r rate.Limit, b, cap int) Allow {
	cap /= 2
	if cap < 1 {
		cap = 1
	}
	mu := new(sync.Mutex)
	front := make(map[string]*rate.Limiter, cap)
	back := make(map[string]*rate.Limiter, cap)

	return func(conn net.Conn) (Cleanup, error) {
		remoteAddr := remoteIP(conn)

		mu.Lock()
		defer mu.Unlock()

		limiter := front[remoteAddr]
		if limiter == nil {
			limiter = back[remoteAddr]
		}
		if limiter == nil {
			if len(front) >= cap {
				back = front
				front = make(map[string]*rate.Limiter, cap)
			}
			limiter = rate.NewLimiter(r, b)
			front[remoteAddr] = limiter
		}
		if !limiter.Allow() {
			return nil, ErrRateLimited
		}
		return nil, nil
	}
}

// Max returns an Allow function that rejects connections once a maximum number
// of connections are being served. Once a served connection is closed, it opens
// up room for another connection. A negative maximum disables the limit.
func Max(maxConns int) Allow {
	connsMu := new(sync.Mutex)
	conns := 0

	return func(net.Conn) (Cleanup, error) {
		if maxConns < 0 {
			return nil, nil
		}

		connsMu.Lock()
		defer connsMu.Unlock()
		if conns >= maxConns {
			return nil, ErrMaxConnectionsExceeded
		}
		conns++

		return func() {
			connsMu.Lock()
			conns--
			connsMu.Unlock()
		}, nil
	}
}

func remoteIP(conn net.Conn) string {
	if tcpAddr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return tcpAddr.IP.String()
	}
	return conn.RemoteAddr().String()
}
