package trending

import (
	"time"

	"github.com/okian/buzz/internal/domain/model"
	"github.com/okian/buzz/pkg/logger"
)

// Option applies a configuration option to the Job.
type Option func(*Job)

// WithDefaults sets the parameters used for fields a payload leaves out.
func WithDefaults(p model.JobParameters) Option {
	return func(j *Job) { j.defaults = p }
}

// WithClock overrides the time source used for filters, scores and durations.
func WithClock(now func() time.Time) Option {
	return func(j *Job) {
		if now != nil {
			j.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(j *Job) {
		if l != nil {
			j.log = l
		}
	}
}
