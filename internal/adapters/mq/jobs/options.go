package jobs

import (
	"time"

	"github.com/okian/buzz/internal/domain/dedupe"
	"github.com/okian/buzz/pkg/logger"
)

// Default job service configuration constants.
const (
	defaultAttempts    = 3
	defaultBackoff     = 5 * time.Second
	defaultMaxBackoff  = 10 * time.Minute
	defaultCapacity    = 64
	defaultConcurrency = 1
	defaultRetention   = 24 * time.Hour
)

// Option applies a configuration option to a Service.
type Option func(*settings)

type settings struct {
	attempts    int
	backoff     time.Duration
	maxBackoff  time.Duration
	capacity    int
	concurrency int
	retention   time.Duration
	deduper     dedupe.Deduper
	logger      logger.Logger
	now         func() time.Time
}

// WithAttempts sets the default number of attempts per job.
func WithAttempts(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithBackoff sets the base retry delay; attempt k waits base*2^(k-1).
func WithBackoff(base time.Duration) Option {
	return func(s *settings) {
		if base > 0 {
			s.backoff = base
		}
	}
}

// WithMaxBackoff caps the retry delay.
func WithMaxBackoff(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.maxBackoff = d
		}
	}
}

// WithCapacity bounds each priority lane of the queue.
func WithCapacity(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithConcurrency sets how many jobs may run at once.
func WithConcurrency(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRetention drops finished jobs older than d on every enqueue.
func WithRetention(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithDeduper remembers explicit job ids beyond retention.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *settings) {
		s.deduper = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for job timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}
