package explorecheck

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/buzz/internal/adapters/mq/jobs"
	"github.com/okian/buzz/internal/app/ranking"
	"github.com/okian/buzz/internal/domain/types"
	"github.com/okian/buzz/pkg/logger"
)

// Run executes the complete check. The returned stats are populated even
// when an error is returned after the job has been triggered.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	cfg.withDefaults()
	if len(cfg.Categories) == 0 {
		cfg.Categories = ranking.DefaultCategories
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get().Named("explore-check")
	}
	stats := &Stats{StartTime: time.Now()}
	defer func() {
		stats.EndTime = time.Now()
		stats.Duration = stats.EndTime.Sub(stats.StartTime)
	}()

	log.Info(ctx, "starting explore check",
		logger.String("baseURL", cfg.BaseURL),
		logger.Strings("categories", cfg.Categories),
		logger.Int("pages", cfg.Pages),
		logger.Int("limit", cfg.Limit),
		logger.Bool("forceAll", cfg.ForceAll))

	client := NewClient(cfg)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Trigger a recalculation
	res, err := client.Trigger(ctx, cfg.ForceAll)
	if err != nil {
		return stats, fmt.Errorf("trigger failed: %w", err)
	}
	if !res.Success {
		return stats, fmt.Errorf("%w: %s", ErrTriggerRejected, res.Error)
	}
	stats.JobID = res.JobID
	log.Info(ctx, "recalculation triggered", logger.String("jobID", res.JobID))

	// Step 3: Wait for the job
	job, err := waitForJob(ctx, client, cfg, res.JobID, log)
	if err != nil {
		return stats, err
	}
	stats.JobState = job.State
	if job.Result != nil {
		stats.JobResult = *job.Result
	}
	if job.State == jobs.StateFailed {
		return stats, fmt.Errorf("%w: %s", ErrJobFailed, job.FailedReason)
	}

	// Step 4: Walk every category concurrently
	walkCategories(ctx, client, cfg, stats, log)

	// Step 5: Check the feed
	feed, err := client.Feed(ctx, cfg.UserID)
	if err != nil {
		return stats, fmt.Errorf("feed retrieval failed: %w", err)
	}
	stats.FeedSections = len(feed.Sections)
	stats.Violations = appendCapped(stats.Violations, verifyFeed(feed)...)

	displayFinalStats(ctx, stats, log)
	if len(stats.Violations) > 0 {
		return stats, fmt.Errorf("%w: %d violations", ErrInconsistent, len(stats.Violations))
	}
	log.Info(ctx, "check completed successfully")
	return stats, nil
}

// waitForJob polls until the job completes, fails or runs out of time.
func waitForJob(ctx context.Context, client *Client, cfg *Config, id string, log logger.Logger) (Job, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.JobTimeout)
	defer cancel()

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		job, err := client.Job(ctx, id)
		if err != nil && ctx.Err() == nil {
			return Job{}, fmt.Errorf("job status failed: %w", err)
		}
		if err == nil {
			switch job.State {
			case jobs.StateCompleted, jobs.StateFailed:
				return job, nil
			}
			log.Debug(ctx, "job in progress", logger.String("state", string(job.State)), logger.Int("progress", job.Progress))
		}

		select {
		case <-ctx.Done():
			return Job{}, fmt.Errorf("%w: job %s", ErrJobTimeout, id)
		case <-ticker.C:
		}
	}
}

// walkCategories fetches up to cfg.Pages pages of each category with a
// fixed pool of workers and records every violation found.
func walkCategories(ctx context.Context, client *Client, cfg *Config, stats *Stats, log logger.Logger) {
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	categories := make(chan string, len(cfg.Categories))
	for _, c := range cfg.Categories {
		categories <- c
	}
	close(categories)

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for categoryID := range categories {
				pages, violations := walkCategory(ctx, client, cfg, categoryID)
				entries := 0
				for _, p := range pages {
					entries += len(p.Tweets)
				}
				if cfg.Verbose {
					log.Info(ctx, "category walked",
						logger.String("category", categoryID),
						logger.Int("pages", len(pages)),
						logger.Int("entries", entries),
						logger.Int("violations", len(violations)))
				}

				mu.Lock()
				stats.PagesFetched += len(pages)
				stats.EntriesChecked += entries
				stats.Violations = appendCapped(stats.Violations, violations...)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}

func walkCategory(ctx context.Context, client *Client, cfg *Config, categoryID string) ([]types.CategoryPage, []string) {
	var (
		pages      []types.CategoryPage
		violations []string
	)
	for page := 1; page <= cfg.Pages; page++ {
		p, err := client.CategoryPage(ctx, categoryID, page, cfg.Limit)
		if err != nil {
			violations = append(violations, fmt.Sprintf("%s page %d: %v", categoryID, page, err))
			break
		}
		pages = append(pages, p)
		violations = append(violations, verifyPage(p, page, cfg.Limit)...)
		if !p.HasMore {
			break
		}
	}
	return pages, append(violations, verifyWalk(pages)...)
}

func appendCapped(dst []string, src ...string) []string {
	for _, v := range src {
		if len(dst) >= maxViolations {
			return dst
		}
		dst = append(dst, v)
	}
	return dst
}

// displayFinalStats logs the final check statistics.
func displayFinalStats(ctx context.Context, stats *Stats, log logger.Logger) {
	for _, v := range stats.Violations {
		log.Warn(ctx, "violation", logger.String("detail", v))
	}
	log.Info(ctx, "final statistics",
		logger.String("jobID", stats.JobID),
		logger.String("jobState", string(stats.JobState)),
		logger.Int("tweetsProcessed", stats.JobResult.TweetsProcessed),
		logger.Int("tweetsUpdated", stats.JobResult.TweetsUpdated),
		logger.Int("categoriesUpdated", stats.JobResult.CategoriesUpdated),
		logger.Int("jobErrors", len(stats.JobResult.Errors)),
		logger.Int("pagesFetched", stats.PagesFetched),
		logger.Int("entriesChecked", stats.EntriesChecked),
		logger.Int("feedSections", stats.FeedSections),
		logger.Int("violations", len(stats.Violations)),
		logger.Duration("duration", time.Since(stats.StartTime)))
}
