// Package policy defines functions that decide which inbound connections a
// responder is willing to serve. An Allow function is run by the accept loop
// before a connection is handed to its own goroutine, so a rejected connection
// never exchanges a single handshake byte.
//
// Allow functions are small, and are composed to build the policy of a
// server:
//
//	// Serve at most 128 transfers at once.
//	maxConns := policy.Max(128)
//	// Allow one new connection every ten seconds per IP address, with bursts
//	// of up to ten connections.
//	rateLimit := policy.RateLimit(0.1, 10, 65535)
//	// Require that both policies pass.
//	allow := policy.All(maxConns, rateLimit)
package policy
