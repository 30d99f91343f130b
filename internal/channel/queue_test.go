package channel

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// TestQueueFIFO verifies strict FIFO ordering through a single consumer.
func TestQueueFIFO(t *testing.T) {
	q := newQueue()
	const n = 100

	for i := 0; i < n; i++ {
		q.push([]byte(fmt.Sprintf("item-%03d", i)))
	}

	for i := 0; i < n; i++ {
		item, ok := q.pop()
		if !ok {
			t.Fatalf("pop %d: queue empty", i)
		}
		if want := fmt.Sprintf("item-%03d", i); string(item) != want {
			t.Fatalf("pop %d = %q, want %q", i, item, want)
		}
	}

	if _, ok := q.pop(); ok {
		t.Error("pop on drained queue succeeded")
	}
}

// TestQueuePopWaitTimeout verifies the bounded wait returns within the
// timeout window when nothing arrives.
func TestQueuePopWaitTimeout(t *testing.T) {
	q := newQueue()
	const timeout = 100 * time.Millisecond

	start := time.Now()
	item, ok := q.popWait(timeout)
	elapsed := time.Since(start)

	if ok || item != nil {
		t.Fatalf("popWait on empty queue = (%v, %v)", item, ok)
	}
	if elapsed < timeout {
		t.Errorf("returned after %v, before the %v timeout", elapsed, timeout)
	}
	if elapsed > timeout+500*time.Millisecond {
		t.Errorf("returned after %v, far past the %v timeout", elapsed, timeout)
	}
}

// TestQueuePopWaitWakes verifies a waiter is woken by a push instead of
// sleeping out its full timeout.
func TestQueuePopWaitWakes(t *testing.T) {
	q := newQueue()

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.push([]byte("late"))
	}()

	item, ok := q.popWait(2 * time.Second)
	if !ok || string(item) != "late" {
		t.Fatalf("popWait = (%q, %v), want (late, true)", item, ok)
	}
}

// TestQueueCoalescedWake verifies that two buffered items reach two waiters
// even though push wakeups coalesce.
func TestQueueCoalescedWake(t *testing.T) {
	q := newQueue()
	q.push([]byte("a"))
	q.push([]byte("b"))

	var wg sync.WaitGroup
	got := make(chan []byte, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if item, ok := q.popWait(time.Second); ok {
				got <- item
			}
		}()
	}
	wg.Wait()
	close(got)

	if len(got) != 2 {
		t.Fatalf("delivered %d items to 2 waiters, want 2", len(got))
	}
}

// TestQueueConcurrentProducers verifies nothing is lost under multi-producer
// pressure.
func TestQueueConcurrentProducers(t *testing.T) {
	q := newQueue()
	const producers, perProducer = 8, 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.push([]byte{1})
			}
		}()
	}
	wg.Wait()

	if got := q.len(); got != producers*perProducer {
		t.Fatalf("queue holds %d items, want %d", got, producers*perProducer)
	}
}
