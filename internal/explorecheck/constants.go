package explorecheck

import "time"

// Defaults applied to a zero Config.
const (
	DefaultPages        = 3
	DefaultLimit        = 20
	DefaultWorkers      = 4
	DefaultTimeout      = 10 * time.Second
	DefaultPollInterval = time.Second
	DefaultJobTimeout   = 5 * time.Minute
)

const maxViolations = 50

func (c *Config) withDefaults() {
	if c.Pages < 1 {
		c.Pages = DefaultPages
	}
	if c.Limit < 1 {
		c.Limit = DefaultLimit
	}
	if c.Workers < 1 {
		c.Workers = DefaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = DefaultJobTimeout
	}
}
