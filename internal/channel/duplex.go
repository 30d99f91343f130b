// Package channel implements the generic duplex engine: two unbounded queues
// drained and filled by a dedicated sender and receiver goroutine, decoupling
// the application from the transport underneath.
package channel

import (
	"sync"
	"time"

	"github.com/ahrastnik/phantomlink/internal/util"
)

// Transport moves raw frames to and from the peer. It is the only seam the
// protocol layer has to supply; the engine itself is transport-agnostic.
//
// ReceiveBytes must bound its own blocking (a read deadline or equivalent)
// and return (nil, nil) when nothing arrived, so the receiver loop can
// re-check liveness. Transport errors are reported, not retried, by the
// engine.
type Transport interface {
	SendBytes(data []byte) error
	ReceiveBytes() ([]byte, error)
}

// receiveBackoff throttles the receiver loop when the transport keeps
// erroring (e.g. closed after a peer reset) so it cannot spin.
const receiveBackoff = 100 * time.Millisecond

// Duplex owns the outbound and inbound queues and the two loops that bridge
// them to a Transport. Exactly one sender and one receiver goroutine are
// alive while the engine is running.
type Duplex struct {
	tr   Transport
	poll time.Duration // bounded wait for the sender's queue pop

	outbound *queue
	inbound  *queue

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewDuplex creates an engine over tr. poll bounds the sender's queue wait;
// it is also how quickly the loops observe Disconnect.
func NewDuplex(tr Transport, poll time.Duration) *Duplex {
	return &Duplex{
		tr:       tr,
		poll:     poll,
		outbound: newQueue(),
		inbound:  newQueue(),
	}
}

// Connect starts the sender and receiver loops. Calling it on a running
// engine is a no-op.
func (d *Duplex) Connect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true

	d.wg.Add(2)
	go d.senderLoop()
	go d.receiverLoop()
}

// Disconnect stops both loops and waits for them to exit, guaranteeing that
// no goroutine touches the transport after it returns. Calling it on a
// stopped engine is a no-op.
func (d *Duplex) Disconnect() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	d.wg.Wait()
}

// Running reports whether the loops are active.
func (d *Duplex) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Send enqueues a frame for transmission. It never blocks and never fails;
// the outbound queue is unbounded.
func (d *Duplex) Send(data []byte) {
	d.outbound.push(data)
}

// Receive dequeues the next inbound frame. With block set it waits up to
// timeout; it returns nil when nothing is available.
func (d *Duplex) Receive(block bool, timeout time.Duration) []byte {
	if !block {
		data, _ := d.inbound.pop()
		return data
	}
	data, _ := d.inbound.popWait(timeout)
	return data
}

// Pending reports the number of frames waiting in the outbound queue.
func (d *Duplex) Pending() int {
	return d.outbound.len()
}

// senderLoop drains the outbound queue in FIFO order. The bounded pop is how
// Disconnect is eventually observed even though the queue wait blocks.
func (d *Duplex) senderLoop() {
	defer d.wg.Done()

	for d.Running() {
		data, ok := d.outbound.popWait(d.poll)
		if !ok {
			continue
		}
		if err := d.tr.SendBytes(data); err != nil {
			util.LogWarning("send failed: %v", err)
			continue
		}
		util.Stats.AddSent(len(data))
	}
}

// receiverLoop fills the inbound queue. ReceiveBytes bounds its own blocking,
// so the running flag is re-checked at least once per transport deadline.
func (d *Duplex) receiverLoop() {
	defer d.wg.Done()

	for d.Running() {
		data, err := d.tr.ReceiveBytes()
		if err != nil {
			util.LogDebug("receive failed: %v", err)
			time.Sleep(receiveBackoff)
			continue
		}
		if data == nil {
			continue
		}
		util.Stats.AddRecv(len(data))
		d.inbound.push(data)
	}
}
