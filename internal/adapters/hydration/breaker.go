// Package hydration guards the content-fetch collaborator with a circuit
// breaker.
package hydration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/buzz/internal/domain/model"
	"github.com/okian/buzz/pkg/logger"
	"github.com/okian/buzz/pkg/metrics"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Default breaker configuration constants.
const (
	defaultName             = "content-hydration"
	defaultMaxRequests      = 1
	defaultInterval         = time.Minute
	defaultTimeout          = 30 * time.Second
	defaultFailureThreshold = 5
)

// Fetcher loads full content for a batch of ids.
type Fetcher interface {
	FetchByIDs(ctx context.Context, ids []string) ([]model.Tweet, error)
}

// Breaker decorates a Fetcher. After FailureThreshold consecutive failures
// calls fail fast with ErrUnavailable until the timeout elapses.
type Breaker struct {
	next Fetcher
	cb   *gobreaker.CircuitBreaker[[]model.Tweet]
	log  logger.Logger

	name             string
	maxRequests      uint32
	interval         time.Duration
	timeout          time.Duration
	failureThreshold uint32
}

var _ Fetcher = (*Breaker)(nil)

// Option applies a configuration option to the Breaker.
type Option func(*Breaker)

// WithName sets the breaker name used in logs.
func WithName(name string) Option {
	return func(b *Breaker) {
		if name != "" {
			b.name = name
		}
	}
}

// WithMaxRequests sets the number of probes allowed while half-open.
func WithMaxRequests(n uint32) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.maxRequests = n
		}
	}
}

// WithInterval sets the closed-state counting window.
func WithInterval(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.interval = d
		}
	}
}

// WithTimeout sets how long the breaker stays open.
func WithTimeout(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithFailureThreshold sets the consecutive failures that open the breaker.
func WithFailureThreshold(n uint32) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Breaker) {
		if l != nil {
			b.log = l
		}
	}
}

// NewBreaker wraps next.
func NewBreaker(next Fetcher, opts ...Option) *Breaker {
	b := &Breaker{
		next:             next,
		name:             defaultName,
		maxRequests:      defaultMaxRequests,
		interval:         defaultInterval,
		timeout:          defaultTimeout,
		failureThreshold: defaultFailureThreshold,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = logger.Get().Named("hydration")
	}

	threshold := b.failureThreshold
	b.cb = gobreaker.NewCircuitBreaker[[]model.Tweet](gobreaker.Settings{
		Name:        b.name,
		MaxRequests: b.maxRequests,
		Interval:    b.interval,
		Timeout:     b.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.log.Warn(context.Background(), "breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
			metrics.UpdateHydrationBreakerState(stateValue(to))
		},
	})
	metrics.UpdateHydrationBreakerState(stateValue(gobreaker.StateClosed))
	return b
}

// FetchByIDs calls the wrapped fetcher unless the breaker is open.
func (b *Breaker) FetchByIDs(ctx context.Context, ids []string) ([]model.Tweet, error) {
	if len(ids) == 0 {
		return []model.Tweet{}, nil
	}
	tweets, err := b.cb.Execute(func() ([]model.Tweet, error) {
		return b.next.FetchByIDs(ctx, ids)
	})
	if err != nil {
		metrics.RecordHydrationError()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("hydrate %d ids: %w", len(ids), err)
	}
	return tweets, nil
}

// State reports the breaker state as closed, half-open or open.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
