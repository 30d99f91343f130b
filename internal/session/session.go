// Package session implements the controller-facing protocol on top of the
// duplex channel: packet framing, the lifecycle handshake, and the
// confirm/retry policy for trajectory transfer.
package session

import (
	"sync"
	"time"

	"github.com/ahrastnik/phantomlink/internal/channel"
	"github.com/ahrastnik/phantomlink/internal/protocol"
	"github.com/ahrastnik/phantomlink/internal/transport"
	"github.com/ahrastnik/phantomlink/internal/util"
)

// Defaults for the timing knobs when the caller leaves them zero.
const (
	DefaultTimeout    = 2 * time.Second
	DefaultRetryCount = 3
)

// Config carries the peer endpoint and timing constants. It is passed to New
// once; there are no package-level tunables.
type Config struct {
	// PeerAddr is the controller endpoint, host:port.
	PeerAddr string

	// ListenAddr optionally binds a dedicated local port for inbound
	// datagrams. Empty means replies arrive on the connected send socket.
	ListenAddr string

	// Timeout is the communication timeout: the confirm wait, the sender's
	// queue poll, and the transport read deadline.
	Timeout time.Duration

	// RetryCount bounds whole-trajectory retransmission attempts.
	RetryCount int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RetryCount <= 0 {
		c.RetryCount = DefaultRetryCount
	}
	return c
}

// Transport is what a session drives: the channel seam plus teardown.
type Transport interface {
	channel.Transport
	Close() error
}

// Session owns the transport binding and the duplex engine over it. All
// expected failures (timeouts, kind mismatches, short trajectories) surface
// as boolean results; errors are reserved for connect-time configuration
// problems.
//
// At most one confirm-requiring send may be in flight at a time: a
// confirmation is matched purely by kind code, so concurrent confirmed sends
// could consume each other's replies.
type Session struct {
	cfg Config

	mu sync.Mutex
	tr Transport
	dx *channel.Duplex
}

// New creates a disconnected session.
func New(cfg Config) *Session {
	return &Session{cfg: cfg.withDefaults()}
}

// Connect dials the UDP socket pair per the config and starts the duplex
// engine. A second call on a connected session is a no-op.
func (s *Session) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tr != nil {
		return nil
	}

	tr, err := transport.DialUDP(transport.UDPConfig{
		PeerAddr:    s.cfg.PeerAddr,
		ListenAddr:  s.cfg.ListenAddr,
		ReadTimeout: s.cfg.Timeout,
	})
	if err != nil {
		return err
	}

	s.bind(tr)
	return nil
}

// ConnectWith starts the session over an already-dialed transport binding,
// such as a WebSocket link or a test loopback. No-op when connected.
func (s *Session) ConnectWith(tr Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tr != nil {
		return
	}
	s.bind(tr)
}

// bind wires the frame gate and spins up the engine. Caller holds s.mu.
func (s *Session) bind(tr Transport) {
	s.tr = tr
	s.dx = channel.NewDuplex(frameGate{tr}, s.cfg.Timeout)
	s.dx.Connect()
}

// Disconnect stops the engine, waits for its loops, then closes and clears
// the sockets. Idempotent.
func (s *Session) Disconnect() {
	s.mu.Lock()
	tr, dx := s.tr, s.dx
	s.tr, s.dx = nil, nil
	s.mu.Unlock()

	if dx != nil {
		dx.Disconnect()
	}
	if tr != nil {
		tr.Close()
	}
}

// Connected reports whether the session holds an open transport.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tr != nil
}

// SendStart probes the controller with a confirmed START. Callers treat a
// false result as "peer unreachable".
func (s *Session) SendStart() bool {
	return s.sendPacket(protocol.KindStart, nil, true)
}

// SendStop notifies the controller of shutdown. Fire-and-forget.
func (s *Session) SendStop() {
	s.sendPacket(protocol.KindStop, nil, false)
}

// SendBallPosition streams one tracked position. Fire-and-forget.
func (s *Session) SendBallPosition(p protocol.Point) {
	s.sendPacket(protocol.KindBallPosition, []float64{p.X, p.Y, p.Z}, false)
}

// SendTrajectory transfers a trajectory to the controller. The trajectory is
// closed into a loop before transmission and must contain at least three
// points; shorter input is rejected without any I/O.
//
// Each attempt is: confirmed TRAJECTORY_START carrying the closed sample
// count, every sample as an unconfirmed TRAJECTORY_SAMPLE, then a confirmed
// TRAJECTORY_END. A failed confirmation restarts the whole sequence, up to
// the configured retry budget.
func (s *Session) SendTrajectory(points []protocol.Point) bool {
	if len(points) < protocol.MinTrajectoryPoints {
		util.LogWarning("trajectory rejected: %d points (need at least %d)",
			len(points), protocol.MinTrajectoryPoints)
		return false
	}

	closed := protocol.CloseLoop(points)

	for attempt := 1; attempt <= s.cfg.RetryCount; attempt++ {
		if attempt > 1 {
			util.LogDebug("trajectory attempt %d/%d", attempt, s.cfg.RetryCount)
		}

		if !s.sendPacket(protocol.KindTrajectoryStart, []float64{float64(len(closed))}, true) {
			continue
		}

		for _, p := range closed {
			s.sendPacket(protocol.KindTrajectorySample, []float64{p.X, p.Y, p.Z}, false)
		}

		if s.sendPacket(protocol.KindTrajectoryEnd, nil, true) {
			return true
		}
	}

	util.LogWarning("trajectory transfer failed after %d attempts", s.cfg.RetryCount)
	return false
}

// Receive pulls the next inbound packet, waiting up to timeout when block is
// set. It returns nil when nothing is queued. Frames reaching this point are
// exactly one frame long, so Decode cannot fail here.
func (s *Session) Receive(block bool, timeout time.Duration) *protocol.Packet {
	dx := s.duplex()
	if dx == nil {
		return nil
	}

	data := dx.Receive(block, timeout)
	if data == nil {
		return nil
	}
	pkt, err := protocol.Decode(data)
	if err != nil {
		return nil
	}
	return pkt
}

// sendPacket encodes and enqueues one frame. With confirm set it blocks up
// to the communication timeout for the next inbound packet and succeeds only
// when that packet's kind equals the sent kind; a mismatch counts the same
// as a timeout. Returns false when the session is not connected.
func (s *Session) sendPacket(kind protocol.Kind, data []float64, confirm bool) bool {
	dx := s.duplex()
	if dx == nil {
		util.LogDebug("send %s skipped: not connected", kind)
		return false
	}

	pkt := &protocol.Packet{Kind: kind}
	copy(pkt.Data[:], data)
	dx.Send(protocol.Encode(pkt))

	if !confirm {
		return true
	}

	reply := dx.Receive(true, s.cfg.Timeout)
	if reply == nil {
		util.Stats.AddConfirmFailure()
		util.LogDebug("%s not confirmed: timeout", kind)
		return false
	}

	decoded, err := protocol.Decode(reply)
	if err != nil || decoded.Kind != kind {
		util.Stats.AddConfirmFailure()
		util.LogDebug("%s not confirmed: unexpected reply", kind)
		return false
	}
	return true
}

func (s *Session) duplex() *channel.Duplex {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dx
}

// frameGate drops inbound datagrams that are not exactly one frame long, so
// a malformed frame is never enqueued.
type frameGate struct {
	inner channel.Transport
}

func (g frameGate) SendBytes(data []byte) error {
	return g.inner.SendBytes(data)
}

func (g frameGate) ReceiveBytes() ([]byte, error) {
	data, err := g.inner.ReceiveBytes()
	if err != nil || data == nil {
		return nil, err
	}
	if len(data) != protocol.FrameSize {
		util.Stats.AddMalformedDrop()
		util.LogDebug("dropping malformed frame: %d bytes", len(data))
		return nil, nil
	}
	return data, nil
}
