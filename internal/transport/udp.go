package transport

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ahrastnik/phantomlink/internal/channel"
	"github.com/ahrastnik/phantomlink/internal/util"
)

// ReceiveBufferSize is the datagram read buffer. A frame is 32 bytes; the
// controller side pads generously, so match its 4096-byte buffer.
const ReceiveBufferSize = 4096

// Compile-time interface check.
var _ channel.Transport = (*UDP)(nil)

// UDPConfig describes the socket layout of a UDP binding.
type UDPConfig struct {
	// PeerAddr is the controller endpoint, host:port.
	PeerAddr string

	// ListenAddr optionally binds a second socket for inbound datagrams.
	// When empty, replies are read from the connected send socket, which
	// the OS already filters to the peer address.
	ListenAddr string

	// ReadTimeout bounds every ReceiveBytes call so the receiver loop can
	// re-check liveness.
	ReadTimeout time.Duration
}

// UDP is the datagram binding to the controller. One connected socket is
// used for sending; reads come either from that same socket or from a
// separately bound listen socket.
type UDP struct {
	readTimeout time.Duration

	mu   sync.Mutex
	send *net.UDPConn
	recv *net.UDPConn // nil in single-socket mode
}

// DialUDP opens the socket pair described by cfg.
func DialUDP(cfg UDPConfig) (*UDP, error) {
	peer, err := net.ResolveUDPAddr("udp", cfg.PeerAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve peer %q: %w", cfg.PeerAddr, err)
	}

	send, err := net.DialUDP("udp", nil, peer)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", peer, err)
	}

	u := &UDP{readTimeout: cfg.ReadTimeout, send: send}

	if cfg.ListenAddr != "" {
		local, err := net.ResolveUDPAddr("udp", cfg.ListenAddr)
		if err != nil {
			send.Close()
			return nil, fmt.Errorf("resolve listen addr %q: %w", cfg.ListenAddr, err)
		}
		recv, err := net.ListenUDP("udp", local)
		if err != nil {
			send.Close()
			return nil, fmt.Errorf("bind %s: %w", local, err)
		}
		u.recv = recv
	}

	return u, nil
}

// SendBytes writes one datagram to the peer.
func (u *UDP) SendBytes(data []byte) error {
	u.mu.Lock()
	conn := u.send
	u.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	_, err := conn.Write(data)
	return err
}

// ReceiveBytes reads one datagram, waiting at most the configured read
// timeout. A deadline expiry returns (nil, nil). Any other read error is
// treated as a peer reset: the binding closes itself so the session only
// ever observes the resulting confirmation timeouts.
func (u *UDP) ReceiveBytes() ([]byte, error) {
	conn := u.readConn()
	if conn == nil {
		return nil, ErrNotConnected
	}

	if err := conn.SetReadDeadline(time.Now().Add(u.readTimeout)); err != nil {
		return nil, err
	}

	buf := make([]byte, ReceiveBufferSize)
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, nil
		}
		util.LogWarning("udp read error, closing link: %v", err)
		u.Close()
		return nil, ErrPeerReset
	}

	return buf[:n], nil
}

// Close shuts both sockets and clears the handles. Idempotent.
func (u *UDP) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	var err error
	if u.send != nil {
		err = u.send.Close()
		u.send = nil
	}
	if u.recv != nil {
		if cerr := u.recv.Close(); err == nil {
			err = cerr
		}
		u.recv = nil
	}
	return err
}

// LocalAddr returns the local address of the socket datagrams are read from,
// or nil when closed. This is the address a controller replies to in
// two-socket mode.
func (u *UDP) LocalAddr() net.Addr {
	conn := u.readConn()
	if conn == nil {
		return nil
	}
	return conn.LocalAddr()
}

func (u *UDP) readConn() *net.UDPConn {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.recv != nil {
		return u.recv
	}
	return u.send
}
