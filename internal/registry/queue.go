// Package registry is the broker's concurrent, name-indexed store of
// topics and queues: get-or-create semantics on both maps, a bounded
// queue with blocking consume, and a bound-set per topic safe to iterate
// during concurrent bind/unbind.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package registry

import (
	"context"

	"github.com/qbusio/qbus/internal/debug"
	"github.com/qbusio/qbus/internal/metrics"
)

// Queue is a named, bounded FIFO of opaque byte payloads. It is
// implemented on a buffered channel rather than a hand-rolled lock-free
// ring: a Go channel already gives bounded capacity, safe concurrent
// multi-producer/multi-consumer push/pop, and — critically — a
// "register interest before observing emptiness" wake-up for free. A
// goroutine parked on a channel receive is woken by the very send that
// fills the slot it's waiting on, so the lost-wakeup race the spec calls
// out (push+notify racing pop-fails+await) cannot occur here: there's no
// separate notify step to race against.
type Queue struct {
	name string
	cap  int
	ch   chan []byte
}

func NewQueue(name string, capacity int) *Queue {
	debug.Assertf(capacity > 0, "queue %q: capacity must be positive, got %d", name, capacity)
	return &Queue{name: name, cap: capacity, ch: make(chan []byte, capacity)}
}

func (q *Queue) Name() string { return q.name }
func (q *Queue) Capacity() int { return q.cap }

// Len reports the current occupancy. It is a best-effort snapshot under
// concurrent use, same as any concurrent queue's len.
func (q *Queue) Len() int {
	n := len(q.ch)
	debug.Assertf(n >= 0 && n <= q.cap, "queue %q: occupancy %d out of [0,%d]", q.name, n, q.cap)
	return n
}

// Push is the non-blocking producer path: true if val was enqueued, false
// if the queue was full. On false, val is neither enqueued nor returned;
// the caller still holds the slice it passed (Produce's fan-out drops it).
func (q *Queue) Push(val []byte) (ok bool) {
	select {
	case q.ch <- val:
		metrics.SetQueueDepth(q.name, len(q.ch))
		return true
	default:
		return false
	}
}

// Pop is the non-blocking consumer path.
func (q *Queue) Pop() (val []byte, ok bool) {
	select {
	case v := <-q.ch:
		metrics.SetQueueDepth(q.name, len(q.ch))
		return v, true
	default:
		return nil, false
	}
}

// PopWait blocks until a value is available or ctx is done, whichever
// comes first. Composable with an external timeout via
// context.WithTimeout, as spec.md §4.3 requires.
func (q *Queue) PopWait(ctx context.Context) (val []byte, ok bool) {
	select {
	case v := <-q.ch:
		metrics.SetQueueDepth(q.name, len(q.ch))
		return v, true
	case <-ctx.Done():
		return nil, false
	}
}
