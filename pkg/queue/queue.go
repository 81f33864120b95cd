// Package queue provides the bounded blocking work queue that connects
// candidate producers to prime-testing consumers. Capacity is fixed at
// construction; a full queue stalls its producer and an empty queue stalls
// its consumer, which is the system's only backpressure mechanism.
package queue

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
)

var (
	// ErrClosed is returned when operating on a closed queue
	ErrClosed = errors.New("work queue is closed")
)

// Queue is a bounded multi-producer/multi-consumer buffer of candidate
// values. Put blocks while full and Take blocks while empty; neither ever
// drops or overwrites an item. Values are never mutated after enqueue.
type Queue struct {
	ch       chan *big.Int // hidden: internal channel
	done     chan struct{}
	closed   int32 // atomic flag
	capacity int
}

// NewBounded creates a queue with the given capacity. Capacity below 1 is
// clamped to 1: a zero-capacity queue could never hand off work.
func NewBounded(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		ch:       make(chan *big.Int, capacity),
		done:     make(chan struct{}),
		capacity: capacity,
	}
}

// Put enqueues n, blocking while the queue is full. Cancellation of ctx
// during the wait returns ctx.Err(); closing the queue returns ErrClosed.
func (q *Queue) Put(ctx context.Context, n *big.Int) error {
	if atomic.LoadInt32(&q.closed) == 1 {
		return ErrClosed
	}
	select {
	case q.ch <- n:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Take dequeues the next value, blocking while the queue is empty.
// Cancellation of ctx during the wait returns ctx.Err(); closing the queue
// returns ErrClosed. Each enqueued value is delivered to exactly one caller.
func (q *Queue) Take(ctx context.Context) (*big.Int, error) {
	if atomic.LoadInt32(&q.closed) == 1 {
		return nil, ErrClosed
	}
	select {
	case n := <-q.ch:
		return n, nil
	case <-q.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryTake attempts a non-blocking dequeue. Returns (nil, false, nil) when
// the queue is empty.
func (q *Queue) TryTake() (*big.Int, bool, error) {
	if atomic.LoadInt32(&q.closed) == 1 {
		return nil, false, ErrClosed
	}
	select {
	case n := <-q.ch:
		return n, true, nil
	default:
		return nil, false, nil
	}
}

// Close marks the queue closed and wakes every blocked Put/Take. Items still
// buffered are discarded with the queue; shutdown does not redeliver them.
// Safe to call more than once.
func (q *Queue) Close() {
	if atomic.CompareAndSwapInt32(&q.closed, 0, 1) {
		close(q.done)
	}
}

// Capacity returns the fixed capacity of the queue.
func (q *Queue) Capacity() int {
	return q.capacity
}

// Size returns the current number of buffered items.
func (q *Queue) Size() int {
	return len(q.ch)
}

// IsClosed reports whether Close has been called.
func (q *Queue) IsClosed() bool {
	return atomic.LoadInt32(&q.closed) == 1
}
