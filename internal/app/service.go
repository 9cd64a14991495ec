// Package service composes the recalculation pipeline and the ranking reader
// into the single dependency the HTTP API needs.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/okian/buzz/internal/adapters/hydration"
	"github.com/okian/buzz/internal/adapters/leaderboard"
	"github.com/okian/buzz/internal/adapters/mq/jobs"
	"github.com/okian/buzz/internal/app/ranking"
	"github.com/okian/buzz/internal/app/trending"
	"github.com/okian/buzz/internal/domain/candidates"
	"github.com/okian/buzz/internal/domain/dedupe"
	"github.com/okian/buzz/internal/domain/model"
	"github.com/okian/buzz/internal/domain/scoring"
	"github.com/okian/buzz/internal/domain/types"
	"github.com/okian/buzz/pkg/logger"
)

// JobName names the recalculation job family in logs and job records.
const JobName = "trending-recalculation"

// statsTimeout bounds the leaderboard reads behind GetStats.
const statsTimeout = 2 * time.Second

// Service implements the API dependencies for the explore system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store  leaderboard.Store
	job    *trending.Job
	queue  *jobs.Service[model.JobPayload, model.JobResult]
	reader *ranking.Reader

	// Configuration
	scorer      scoring.Scorer
	interests   ranking.InterestSource
	jobDefaults model.JobParameters
	interval    time.Duration
	runOnStart  bool
	attempts    int
	backoff     time.Duration
	queueSize   int
	concurrency int
	retention   time.Duration
	dedupeSize  int
	readerOpts  []ranking.Option

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithScorer replaces the default gravity calculator.
func WithScorer(s scoring.Scorer) Option {
	return func(svc *Service) {
		if s != nil {
			svc.scorer = s
		}
	}
}

// WithInterests sets the user-interest source for the personalized feed.
func WithInterests(src ranking.InterestSource) Option {
	return func(s *Service) { s.interests = src }
}

// WithJobDefaults sets the parameters used when a trigger omits them.
func WithJobDefaults(p model.JobParameters) Option {
	return func(s *Service) { s.jobDefaults = p }
}

// WithSchedule sets the periodic trigger. A non-positive interval disables it.
func WithSchedule(interval time.Duration, runOnStart bool) Option {
	return func(s *Service) {
		s.interval = interval
		s.runOnStart = runOnStart
	}
}

// WithRetry sets the attempts and base backoff of failed runs.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if backoff > 0 {
			s.backoff = backoff
		}
	}
}

// WithQueueSize sets the capacity of each priority lane.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithConcurrency sets how many runs may execute at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRetention sets how long finished job records are kept.
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithReaderOptions passes options through to the ranking reader.
func WithReaderOptions(opts ...ranking.Option) Option {
	return func(s *Service) { s.readerOpts = append(s.readerOpts, opts...) }
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New wires the pipeline. Nothing runs until Start.
func New(source candidates.Repository, store leaderboard.Store, content hydration.Fetcher, opts ...Option) *Service {
	s := &Service{
		store:       store,
		scorer:      scoring.NewCalculator(),
		jobDefaults: trending.DefaultParameters,
		attempts:    3,
		backoff:     5 * time.Second,
		queueSize:   64,
		concurrency: 1,
		retention:   24 * time.Hour,
		dedupeSize:  10_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.job = trending.New(source, s.scorer, store,
		trending.WithDefaults(s.jobDefaults),
		trending.WithLogger(s.logger.Named("trending")),
	)
	s.queue = jobs.NewService[model.JobPayload, model.JobResult](JobName, s.job.Run,
		jobs.WithAttempts(s.attempts),
		jobs.WithBackoff(s.backoff),
		jobs.WithCapacity(s.queueSize),
		jobs.WithConcurrency(s.concurrency),
		jobs.WithRetention(s.retention),
		jobs.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize), dedupe.WithTTL(s.retention))),
		jobs.WithLogger(s.logger.Named("jobs")),
	)

	readerOpts := append([]ranking.Option{
		ranking.WithInterests(s.interests),
		ranking.WithLogger(s.logger.Named("ranking")),
	}, s.readerOpts...)
	s.reader = ranking.New(store, content, readerOpts...)
	return s
}

// Start launches the job workers and the periodic trigger.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting explore service...")
	s.queue.Start(ctx)
	if s.interval > 0 || s.runOnStart {
		s.queue.Schedule(ctx, s.interval, s.runOnStart, model.JobPayload{})
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "explore service started",
		logger.Duration("schedule_interval", s.interval),
		logger.Bool("run_on_start", s.runOnStart),
		logger.Int("concurrency", s.concurrency),
		logger.Int("queue_size", s.queueSize),
	)
	return nil
}

// Stop drains the job workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping explore service...")
	err := s.queue.Shutdown(ctx)
	s.started = false
	s.logger.Info(ctx, "explore service stopped")
	return err
}

// Trigger enqueues a recalculation.
func (s *Service) Trigger(ctx context.Context, payload model.JobPayload, opts jobs.EnqueueOptions) jobs.TriggerResult {
	return s.queue.Trigger(ctx, payload, opts)
}

// Get returns one job record.
func (s *Service) Get(id string) (jobs.Job[model.JobPayload, model.JobResult], error) {
	return s.queue.Get(id)
}

// Stats counts jobs by state.
func (s *Service) Stats() jobs.Stats { return s.queue.Stats() }

// Pause stops new runs from starting.
func (s *Service) Pause() { s.queue.Pause() }

// Resume lets runs start again.
func (s *Service) Resume() { s.queue.Resume() }

// Clean drops finished job records older than grace.
func (s *Service) Clean(grace time.Duration, state jobs.State) (int, error) {
	return s.queue.Clean(grace, state)
}

// CategoryPage returns one page of a category leaderboard.
func (s *Service) CategoryPage(ctx context.Context, categoryID string, page, limit int) types.CategoryPage {
	return s.reader.CategoryPage(ctx, categoryID, page, limit)
}

// Feed returns the personalized feed of userID.
func (s *Service) Feed(ctx context.Context, userID string) types.Feed {
	return s.reader.Feed(ctx, userID)
}

// DefaultLimit is the category page size used when none is given.
func (s *Service) DefaultLimit() int { return s.reader.DefaultLimit() }

// MaxLimit is the largest category page size.
func (s *Service) MaxLimit() int { return s.reader.MaxLimit() }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	sizes := s.categorySizes()

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"categorySizes": sizes,
		"started":       s.started,
		"concurrency":   s.concurrency,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"jobDefaults":   s.job.Defaults(),
		"jobs":          s.queue.Stats(),
	}
	if s.started {
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
	}
	return stats
}

// categorySizes counts the members of each default category. Categories the
// store cannot size are left out.
func (s *Service) categorySizes() map[string]int {
	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()

	sizes := make(map[string]int)
	for _, id := range s.reader.DefaultCategories() {
		n, err := s.store.Size(ctx, id)
		if err != nil {
			s.logger.Debug(ctx, "category size unavailable", logger.String("category", id), logger.Error(err))
			continue
		}
		sizes[id] = n
	}
	return sizes
}
