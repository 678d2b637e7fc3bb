package event

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Push after the queue has been closed.
var ErrClosed = errors.New("event queue closed")

// Queue is the process-wide ordered event channel. Any goroutine may
// produce; exactly one consumer drains it. Events are delivered in
// arrival order; there is no ordering guarantee between producers.
type Queue struct {
	ch   chan Event
	done chan struct{}
	once sync.Once
}

// NewQueue creates a queue with the given buffer size.
func NewQueue(size int) *Queue {
	return &Queue{
		ch:   make(chan Event, size),
		done: make(chan struct{}),
	}
}

// Push enqueues an event, blocking until there is room. Returns ErrClosed
// once Close has been called, so producers can wind down.
func (q *Queue) Push(evt Event) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.ch <- evt:
		return nil
	case <-q.done:
		return ErrClosed
	}
}

// TryPush enqueues without blocking. Used by low-value producers (ticks,
// typing refreshes) where dropping under pressure is acceptable.
func (q *Queue) TryPush(evt Event) bool {
	select {
	case <-q.done:
		return false
	case q.ch <- evt:
		return true
	default:
		return false
	}
}

// Events returns the consumer side of the queue.
func (q *Queue) Events() <-chan Event {
	return q.ch
}

// Close stops accepting new events. Safe to call more than once and from
// any goroutine; events already queued remain readable.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
}

// Done is closed once the queue stops accepting events.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}
