// Package transport provides the concrete bindings behind the duplex
// channel's Transport seam: a UDP socket pair for the controller link, a
// WebSocket binding for controllers reachable only through a gateway, and an
// in-process loopback used by tests.
package transport

import "errors"

var (
	// ErrNotConnected is returned when a binding is used after Close, or
	// before it was ever dialed.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrPeerReset is returned once when the peer resets the link; the
	// binding closes itself and subsequent calls report ErrNotConnected.
	ErrPeerReset = errors.New("transport: connection reset by peer")
)
