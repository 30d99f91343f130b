package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ahrastnik/phantomlink/internal/channel"
	"github.com/ahrastnik/phantomlink/internal/util"
)

// Compile-time interface check.
var _ channel.Transport = (*WS)(nil)

// wsInboxSize buffers inbound frames between the read goroutine and
// ReceiveBytes. A frame is 32 bytes, so overflow means the consumer stalled
// for seconds; newer frames win.
const wsInboxSize = 256

// WS carries frames as binary WebSocket messages. It exists for controllers
// that sit behind an HTTP gateway where raw UDP cannot reach; the framing
// and confirm semantics above it are identical.
//
// gorilla treats every read error as permanent, including deadline expiry,
// so the connection must not be polled with per-read deadlines. Instead one
// internal goroutine blocks in ReadMessage for the life of the connection
// and feeds an inbox channel; ReceiveBytes bounds its wait on that channel.
type WS struct {
	readTimeout time.Duration

	wmu sync.Mutex // gorilla allows one concurrent writer

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	err    error // what ReceiveBytes reports once the link is down

	inbox chan []byte
	done  chan struct{}
}

// DialWS connects to a WebSocket endpoint, e.g. ws://gateway:8080/link.
func DialWS(ctx context.Context, url string, readTimeout time.Duration) (*WS, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewWS(conn, readTimeout), nil
}

// NewWS wraps an already-established connection, such as one accepted by an
// upgrader on the gateway side, and starts its read goroutine.
func NewWS(conn *websocket.Conn, readTimeout time.Duration) *WS {
	w := &WS{
		readTimeout: readTimeout,
		conn:        conn,
		inbox:       make(chan []byte, wsInboxSize),
		done:        make(chan struct{}),
	}
	go w.readLoop()
	return w
}

// readLoop is the single reader. It exits on the first read error, which is
// either our own Close or a dead link.
func (w *WS) readLoop() {
	for {
		msgType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.shutdown(ErrPeerReset, func() {
				util.LogWarning("ws read error, closing link: %v", err)
			})
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		select {
		case w.inbox <- data:
		default:
			util.LogDebug("ws inbox full, dropping oldest frame")
			select {
			case <-w.inbox:
			default:
			}
			select {
			case w.inbox <- data:
			default:
			}
		}
	}
}

// SendBytes writes one frame as a binary message.
func (w *WS) SendBytes(data []byte) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrNotConnected
	}
	conn := w.conn
	w.mu.Unlock()

	w.wmu.Lock()
	defer w.wmu.Unlock()
	return conn.WriteMessage(websocket.BinaryMessage, data)
}

// ReceiveBytes pops the next inbound frame, waiting at most the configured
// read timeout; expiry returns (nil, nil) and the connection stays healthy.
// Once the link is down, buffered frames drain first, then the terminal
// error repeats.
func (w *WS) ReceiveBytes() ([]byte, error) {
	timer := time.NewTimer(w.readTimeout)
	defer timer.Stop()

	select {
	case data := <-w.inbox:
		return data, nil
	case <-w.done:
		// A frame may have been buffered before the link died.
		select {
		case data := <-w.inbox:
			return data, nil
		default:
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		return nil, w.err
	case <-timer.C:
		return nil, nil
	}
}

// Close shuts the connection down. Idempotent.
func (w *WS) Close() error {
	var err error
	w.shutdown(ErrNotConnected, func() {
		err = w.conn.Close()
	})
	return err
}

// shutdown performs the close transition exactly once; onFirst runs only for
// the call that wins. The read goroutine and Close both funnel through here.
func (w *WS) shutdown(reason error, onFirst func()) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.err = reason
	w.mu.Unlock()

	onFirst()
	if reason != ErrNotConnected {
		// Closed by the read goroutine, not by the owner.
		w.conn.Close()
	}
	close(w.done)
}
