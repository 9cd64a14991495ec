// Package worker runs queued items through a handler.
//
// A Worker handles one item at a time. A Pool runs several workers over the
// same source.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/buzz/pkg/logger"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Source yields items one at a time. It returns an error once it is closed
// or the context ends.
type Source[T any] interface {
	Dequeue(ctx context.Context) (T, error)
}

// Handler processes one item.
type Handler[T any] func(ctx context.Context, item T) error

// Worker pulls from a Source until it is closed or stopped.
type Worker[T any] struct {
	source  Source[T]
	handle  Handler[T]
	name    string
	logger  logger.Logger
	stopped chan struct{}
	done    chan struct{}
	started atomic.Bool
}

// New creates a worker.
func New[T any](source Source[T], handle Handler[T], opts ...Option) *Worker[T] {
	s := settings{name: "worker"}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("worker")
	}
	return &Worker[T]{
		source:  source,
		handle:  handle,
		name:    s.name,
		logger:  s.logger.Named(s.name),
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Run processes items sequentially until ctx ends, the source closes, or
// Shutdown is called.
func (w *Worker[T]) Run(ctx context.Context) {
	w.started.Store(true)
	defer close(w.done)

	// Stopping interrupts the wait for the next item, not the item in hand.
	pullCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stopped:
			cancel()
		case <-pullCtx.Done():
		}
	}()

	for {
		item, err := w.source.Dequeue(pullCtx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				w.logger.Debug(ctx, "source finished", logger.Error(err))
			}
			return
		}
		if err := w.handle(ctx, item); err != nil {
			w.logger.Error(ctx, "error processing item", logger.Error(err))
		}
	}
}

// Shutdown stops the worker and waits for the current item to finish.
// A worker that never ran returns at once.
func (w *Worker[T]) Shutdown(ctx context.Context) error {
	select {
	case <-w.stopped:
	default:
		close(w.stopped)
	}
	if !w.started.Load() {
		return nil
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Pool manages multiple workers over one source.
type Pool[T any] struct {
	workers []*Worker[T]
	logger  logger.Logger
}

// NewPool creates n workers. n below one means one.
func NewPool[T any](n int, source Source[T], handle Handler[T], opts ...Option) *Pool[T] {
	if n < 1 {
		n = 1
	}
	s := settings{name: "worker-pool"}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("worker-pool")
	}

	p := &Pool[T]{workers: make([]*Worker[T], n), logger: s.logger}
	for i := 0; i < n; i++ {
		p.workers[i] = New(source, handle, WithName(s.name+"-"+strconv.Itoa(i)), WithLogger(s.logger))
	}
	return p
}

// Start runs every worker in its own goroutine.
func (p *Pool[T]) Start(ctx context.Context) {
	for _, w := range p.workers {
		w.started.Store(true)
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool[T]) Size() int { return len(p.workers) }

// Shutdown stops every worker, waiting at most poolShutdownTimeout.
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for i, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
