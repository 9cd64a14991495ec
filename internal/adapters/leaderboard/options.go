package leaderboard

import (
	"time"

	"github.com/okian/buzz/pkg/logger"
)

// Option applies a configuration option to a Store backend.
type Option func(*options)

type options struct {
	settings
	log logger.Logger
	now func() time.Time
}

func newOptions(opts []Option) options {
	o := options{settings: defaultSettings(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get().Named("leaderboard")
	}
	return o
}

// WithKeyPrefix sets the ranked-set key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.keyPrefix = prefix
		}
	}
}

// WithMaxCategorySize caps every trimmed category.
func WithMaxCategorySize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxCategorySize = n
		}
	}
}

// WithMinScoreThreshold sets the lowest member score worth writing.
func WithMinScoreThreshold(t float64) Option {
	return func(o *options) {
		if t >= 0 {
			o.minScoreThreshold = t
		}
	}
}

// WithTTL sets the expiry refreshed on every trim.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithClock overrides the time source used for expiry by the memory store.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
