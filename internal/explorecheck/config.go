// Package explorecheck drives a running explore service end to end: it
// triggers a recalculation, waits for the job and then checks that the
// category leaderboards and the feed are well formed.
package explorecheck

import (
	"time"

	"github.com/okian/buzz/internal/adapters/mq/jobs"
	"github.com/okian/buzz/internal/domain/model"
	"github.com/okian/buzz/pkg/logger"
)

// Config holds configuration for a check run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Token        string        // Bearer token for the admin routes
	Categories   []string      // Categories whose pages are walked
	Pages        int           // Pages to walk per category
	Limit        int           // Page size
	Workers      int           // Concurrent category walkers
	UserID       string        // User whose feed is fetched
	ForceAll     bool          // Rescore every tweet regardless of activity
	Timeout      time.Duration // HTTP request timeout
	PollInterval time.Duration // Delay between job status polls
	JobTimeout   time.Duration // How long to wait for the job
	Verbose      bool          // Log every page

	Logger logger.Logger // Defaults to the global logger
}

// Job is the job snapshot returned by the service.
type Job = jobs.Job[model.JobPayload, model.JobResult]

// Stats holds check statistics.
type Stats struct {
	JobID          string
	JobState       jobs.State
	JobResult      model.JobResult
	PagesFetched   int
	EntriesChecked int
	FeedSections   int
	Violations     []string
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
