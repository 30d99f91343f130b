package channel

import (
	"sync"
	"time"
)

// queue is an unbounded FIFO shared between the application and the channel
// loops. Push never blocks, which is the contract difference from a plain Go
// channel: the producer side of the duplex engine must be fire-and-forget.
type queue struct {
	mu    sync.Mutex
	items [][]byte
	wake  chan struct{} // capacity 1, coalesced wakeup signal
}

func newQueue() *queue {
	return &queue{wake: make(chan struct{}, 1)}
}

// push appends an item and wakes one waiter.
func (q *queue) push(item []byte) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.signal()
}

// pop removes and returns the head item without waiting.
func (q *queue) pop() ([]byte, bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return nil, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	remaining := len(q.items)
	q.mu.Unlock()

	// The wake signal is coalesced, so a consumer that drains one item must
	// re-arm it while items remain or a second waiter could sleep through
	// its timeout with data available.
	if remaining > 0 {
		q.signal()
	}
	return item, true
}

// popWait blocks up to timeout for an item. Multiple concurrent waiters are
// allowed; each item is delivered to exactly one of them.
func (q *queue) popWait(timeout time.Duration) ([]byte, bool) {
	deadline := time.Now().Add(timeout)
	for {
		if item, ok := q.pop(); ok {
			return item, true
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, false
		}

		timer := time.NewTimer(wait)
		select {
		case <-q.wake:
			timer.Stop()
		case <-timer.C:
			// Final attempt: an item may have raced in as the timer fired.
			return q.pop()
		}
	}
}

// len reports the number of queued items.
func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
