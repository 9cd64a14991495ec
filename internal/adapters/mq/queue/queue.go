// Package queue is a bounded in-memory queue with two priority lanes.
//
// Enqueue never blocks: a full lane is reported as ErrFull. Dequeue blocks
// and always drains the high lane before the normal one.
package queue

import (
	"context"
	"sync"

	"github.com/okian/buzz/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 1024
	defaultName     = "queue"
)

// Priority selects the lane an item is placed in.
type Priority int

// Priorities.
const (
	PriorityNormal Priority = iota
	PriorityHigh
)

// String implements fmt.Stringer.
func (p Priority) String() string {
	if p == PriorityHigh {
		return "high"
	}
	return "normal"
}

// Queue holds items of type T.
type Queue[T any] struct {
	high   chan T
	normal chan T
	cfg    config

	mu     sync.RWMutex
	closed bool
}

// New creates a queue.
func New[T any](opts ...Option) *Queue[T] {
	cfg := config{capacity: defaultCapacity, name: defaultName}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Queue[T]{
		high:   make(chan T, cfg.capacity),
		normal: make(chan T, cfg.capacity),
		cfg:    cfg,
	}
}

// Enqueue adds an item without blocking.
func (q *Queue[T]) Enqueue(ctx context.Context, item T, p Priority) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError("context_cancelled")
		return err
	}

	lane := q.normal
	if p == PriorityHigh {
		lane = q.high
	}
	select {
	case lane <- item:
		metrics.RecordQueueEnqueue()
		return nil
	default:
		metrics.RecordQueueEnqueueError("full")
		return ErrFull
	}
}

// Dequeue blocks until an item is available, the context ends, or the
// queue is closed and drained.
func (q *Queue[T]) Dequeue(ctx context.Context) (T, error) {
	var zero T
	high, normal := q.high, q.normal

	for high != nil || normal != nil {
		if high != nil {
			select {
			case item, ok := <-high:
				if ok {
					return item, nil
				}
				high = nil
				continue
			default:
			}
		}

		select {
		case item, ok := <-high:
			if ok {
				return item, nil
			}
			high = nil
		case item, ok := <-normal:
			if ok {
				return item, nil
			}
			normal = nil
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, ErrClosed
}

// Len returns the number of queued items across both lanes.
func (q *Queue[T]) Len() int {
	return len(q.high) + len(q.normal)
}

// Close stops accepting items. Queued items can still be dequeued.
func (q *Queue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.high)
	close(q.normal)
	q.closed = true
	return nil
}
