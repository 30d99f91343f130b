package transport

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// echoGateway serves a WebSocket endpoint that echoes binary messages back.
func echoGateway(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.BinaryMessage {
				continue
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// TestWSRoundTrip verifies frames travel as binary messages over a dialed
// connection.
func TestWSRoundTrip(t *testing.T) {
	w, err := DialWS(context.Background(), echoGateway(t), time.Second)
	if err != nil {
		t.Fatalf("DialWS: %v", err)
	}
	defer w.Close()

	out := []byte("frame-over-ws")
	if err := w.SendBytes(out); err != nil {
		t.Fatalf("SendBytes: %v", err)
	}

	got, err := w.ReceiveBytes()
	if err != nil {
		t.Fatalf("ReceiveBytes: %v", err)
	}
	if !bytes.Equal(got, out) {
		t.Fatalf("ReceiveBytes = %q, want %q", got, out)
	}
}

// TestWSReceiveTimeout verifies a quiet connection returns (nil, nil) after
// the read deadline.
func TestWSReceiveTimeout(t *testing.T) {
	const timeout = 150 * time.Millisecond

	w, err := DialWS(context.Background(), echoGateway(t), timeout)
	if err != nil {
		t.Fatalf("DialWS: %v", err)
	}
	defer w.Close()

	start := time.Now()
	got, err := w.ReceiveBytes()
	elapsed := time.Since(start)

	if got != nil || err != nil {
		t.Fatalf("ReceiveBytes = (%q, %v), want (nil, nil)", got, err)
	}
	if elapsed < timeout {
		t.Errorf("returned after %v, before the %v deadline", elapsed, timeout)
	}
}

// TestWSIdleThenRoundTrip verifies the connection survives idle periods:
// read timeouts must stay recoverable, with frames sent afterward still
// delivered on the same connection.
func TestWSIdleThenRoundTrip(t *testing.T) {
	const timeout = 100 * time.Millisecond

	w, err := DialWS(context.Background(), echoGateway(t), timeout)
	if err != nil {
		t.Fatalf("DialWS: %v", err)
	}
	defer w.Close()

	// Idle link: several consecutive timeouts, each a quiet (nil, nil).
	for i := 0; i < 3; i++ {
		got, err := w.ReceiveBytes()
		if got != nil || err != nil {
			t.Fatalf("idle receive %d = (%q, %v), want (nil, nil)", i, got, err)
		}
	}

	// Traffic after the idle period still arrives.
	out := []byte("after-idle")
	if err := w.SendBytes(out); err != nil {
		t.Fatalf("SendBytes after idle: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := w.ReceiveBytes()
		if err != nil {
			t.Fatalf("ReceiveBytes after idle: %v", err)
		}
		if got != nil {
			if !bytes.Equal(got, out) {
				t.Fatalf("ReceiveBytes = %q, want %q", got, out)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("frame sent after an idle period never arrived")
		}
	}
}

// TestWSClosedBinding verifies Close is idempotent and later use reports
// ErrNotConnected.
func TestWSClosedBinding(t *testing.T) {
	w, err := DialWS(context.Background(), echoGateway(t), time.Second)
	if err != nil {
		t.Fatalf("DialWS: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if err := w.SendBytes([]byte("x")); err != ErrNotConnected {
		t.Errorf("SendBytes after Close = %v, want ErrNotConnected", err)
	}
	if _, err := w.ReceiveBytes(); err != ErrNotConnected {
		t.Errorf("ReceiveBytes after Close = %v, want ErrNotConnected", err)
	}
}

// TestWSDialFailure verifies an unreachable gateway fails fast.
func TestWSDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := DialWS(ctx, "ws://127.0.0.1:1/link", time.Second); err == nil {
		t.Fatal("DialWS reached a closed port")
	}
}
