// Package scheduler fires a function on a fixed interval.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/okian/buzz/pkg/logger"
)

// Func is invoked on every tick.
type Func func(ctx context.Context)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithRunOnStart fires once immediately when started.
func WithRunOnStart(on bool) Option {
	return func(s *Scheduler) { s.runOnStart = on }
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// Scheduler is a ticker loop. Ticks never overlap: a slow Func delays the
// next tick instead of stacking calls.
type Scheduler struct {
	interval   time.Duration
	fn         Func
	runOnStart bool
	logger     logger.Logger

	once     sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a scheduler. It does nothing until Start.
func New(interval time.Duration, fn Func, opts ...Option) *Scheduler {
	s := &Scheduler{
		interval: interval,
		fn:       fn,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("scheduler")
	}
	return s
}

// Start launches the loop. A non-positive interval disables periodic ticks.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if s.runOnStart {
			s.fn(ctx)
		}
		if s.interval <= 0 {
			s.logger.Info(ctx, "periodic schedule disabled")
			return
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.logger.Info(ctx, "schedule started", logger.Duration("interval", s.interval))

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.fn(ctx)
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight tick.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}
