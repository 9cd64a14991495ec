package ranking

import "github.com/okian/buzz/pkg/logger"

// Option applies a configuration option to the Reader.
type Option func(*Reader)

// WithDefaultCategories sets the feed used when a user has no interests.
func WithDefaultCategories(ids []string) Option {
	return func(r *Reader) {
		if len(ids) > 0 {
			r.defaults = append([]string(nil), ids...)
		}
	}
}

// WithInterestTopK sets how many interest categories feed a user's view.
func WithInterestTopK(k int) Option {
	return func(r *Reader) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithPerCategory sets how many tweets each feed section carries.
func WithPerCategory(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.perCategory = n
		}
	}
}

// WithLimits sets the default and maximum category page size.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(r *Reader) {
		if defaultLimit > 0 && maxLimit >= defaultLimit {
			r.defaultLimit = defaultLimit
			r.maxLimit = maxLimit
		}
	}
}

// WithInterests sets the user-interest source. Without one every feed is
// the default feed.
func WithInterests(src InterestSource) Option {
	return func(r *Reader) { r.interests = src }
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.log = l
		}
	}
}
