package transport

import (
	"sync"
	"time"

	"github.com/ahrastnik/phantomlink/internal/channel"
)

// Compile-time interface check.
var _ channel.Transport = (*Loopback)(nil)

// Responder maps one sent frame to zero or more inbound frames. Returning
// nil means the peer stays silent for that frame.
type Responder func(sent []byte) [][]byte

// Echo is a Responder that reflects every frame back verbatim, which is how
// the real controller acknowledges confirm-required kinds.
func Echo(sent []byte) [][]byte {
	cp := make([]byte, len(sent))
	copy(cp, sent)
	return [][]byte{cp}
}

// Loopback is an in-process binding for tests. It records every sent frame
// in transport order and feeds inbound frames either from a Responder or
// from explicit Inject calls.
type Loopback struct {
	readTimeout time.Duration
	respond     Responder

	mu     sync.Mutex
	sent   [][]byte
	closed bool

	inbox chan []byte
}

// NewLoopback creates a loopback binding. respond may be nil for a peer that
// never replies on its own.
func NewLoopback(readTimeout time.Duration, respond Responder) *Loopback {
	return &Loopback{
		readTimeout: readTimeout,
		respond:     respond,
		inbox:       make(chan []byte, 1024),
	}
}

// SendBytes records the frame and runs the responder.
func (l *Loopback) SendBytes(data []byte) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrNotConnected
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	l.sent = append(l.sent, cp)
	respond := l.respond
	l.mu.Unlock()

	if respond != nil {
		for _, reply := range respond(cp) {
			l.Inject(reply)
		}
	}
	return nil
}

// ReceiveBytes pops the next inbound frame, waiting at most the read
// timeout; expiry returns (nil, nil).
func (l *Loopback) ReceiveBytes() ([]byte, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrNotConnected
	}
	l.mu.Unlock()

	timer := time.NewTimer(l.readTimeout)
	defer timer.Stop()

	select {
	case data := <-l.inbox:
		return data, nil
	case <-timer.C:
		return nil, nil
	}
}

// Inject queues a frame on the inbound side, as if the peer had sent it.
func (l *Loopback) Inject(data []byte) {
	select {
	case l.inbox <- data:
	default:
	}
}

// Close marks the binding closed. Idempotent.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Sent returns a snapshot of every frame sent so far, in transport order.
func (l *Loopback) Sent() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(l.sent))
	copy(out, l.sent)
	return out
}

// SetResponder swaps the responder. Useful for scripting failure phases
// mid-test.
func (l *Loopback) SetResponder(respond Responder) {
	l.mu.Lock()
	l.respond = respond
	l.mu.Unlock()
}
