package transport

import (
	"sync"

	"github.com/vburojevic/lurk/internal/domain"
)

// eventQueue is an unbounded FIFO between the socket reader and the
// consumer-facing events channel. push never blocks.
type eventQueue struct {
	mu     sync.Mutex
	items  []domain.Event
	closed bool
	ready  chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{ready: make(chan struct{}, 1)}
}

func (q *eventQueue) push(ev domain.Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()
	q.signal()
}

// close marks the end of the stream. Queued events are still handed out.
func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// take returns everything queued so far and whether the queue is closed.
func (q *eventQueue) take() ([]domain.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items, q.closed
}

func (q *eventQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
