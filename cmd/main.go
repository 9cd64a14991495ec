package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/okian/buzz/internal/adapters/http/api"
	"github.com/okian/buzz/internal/adapters/http/swagger"
	"github.com/okian/buzz/internal/adapters/hydration"
	"github.com/okian/buzz/internal/adapters/leaderboard"
	"github.com/okian/buzz/internal/adapters/postgres"
	service "github.com/okian/buzz/internal/app"
	"github.com/okian/buzz/internal/app/ranking"
	"github.com/okian/buzz/internal/config"
	"github.com/okian/buzz/internal/domain/model"
	"github.com/okian/buzz/internal/domain/scoring"
	"github.com/okian/buzz/pkg/logger"
	"github.com/okian/buzz/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// rankedStore is a leaderboard backend that can report its own health.
type rankedStore interface {
	leaderboard.Store
	api.Checker
}

// backends holds the external resources opened at startup.
type backends struct {
	db     postgres.Querier
	store  rankedStore
	checks map[string]api.Checker
	close  func()
}

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			logger.Get().Error(context.Background(), "logger sync failed", logger.Error(err))
		}
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (.env -> defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.InitWithFormat(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to open backends", logger.Error(err))
		return
	}
	defer b.close()

	svc := newService(cfg, b, log)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(ctx, "service stop failed", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(cfg, svc, b.checks, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// openBackends connects to postgres and the configured leaderboard backend.
func openBackends(ctx context.Context, cfg *config.Config, log logger.Logger) (*backends, error) {
	pool, err := postgres.Connect(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		return nil, err
	}

	b := &backends{
		db:     pool,
		checks: map[string]api.Checker{"postgres": pool},
		close:  pool.Close,
	}

	switch cfg.Leaderboard.Backend {
	case "memory":
		b.store = leaderboard.NewMemoryStore(leaderboardOptions(cfg, log)...)
	default:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := leaderboard.NewRedisStore(client, leaderboardOptions(cfg, log)...)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			pool.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		b.store = store
		b.close = func() {
			_ = client.Close()
			pool.Close()
		}
	}
	b.checks[cfg.Leaderboard.Backend] = b.store
	return b, nil
}

func leaderboardOptions(cfg *config.Config, log logger.Logger) []leaderboard.Option {
	return []leaderboard.Option{
		leaderboard.WithKeyPrefix(cfg.Leaderboard.KeyPrefix),
		leaderboard.WithMaxCategorySize(cfg.Leaderboard.MaxCategorySize),
		leaderboard.WithMinScoreThreshold(cfg.Leaderboard.MinScoreThreshold),
		leaderboard.WithTTL(cfg.Leaderboard.TTL),
		leaderboard.WithLogger(log.Named("leaderboard")),
	}
}

// newService builds the explore pipeline from configuration.
func newService(cfg *config.Config, b *backends, log logger.Logger) *service.Service {
	content := hydration.NewBreaker(postgres.NewContentRepository(b.db),
		hydration.WithMaxRequests(cfg.Hydration.MaxRequests),
		hydration.WithInterval(cfg.Hydration.Interval),
		hydration.WithTimeout(cfg.Hydration.Timeout),
		hydration.WithFailureThreshold(cfg.Hydration.FailureThreshold),
		hydration.WithLogger(log.Named("hydration")),
	)

	scorer := scoring.NewCalculator(
		scoring.WithWeights(scoring.Weights{
			Like:   cfg.Scoring.LikeWeight,
			Repost: cfg.Scoring.RepostWeight,
			Quote:  cfg.Scoring.QuoteWeight,
			Reply:  cfg.Scoring.ReplyWeight,
		}),
		scoring.WithTimeOffset(cfg.Scoring.TimeOffset),
		scoring.WithGravity(cfg.Scoring.Gravity),
	)

	readerOpts := []ranking.Option{
		ranking.WithInterestTopK(cfg.Reader.InterestTopK),
		ranking.WithPerCategory(cfg.Reader.PerCategory),
		ranking.WithLimits(cfg.Reader.DefaultLimit, cfg.Reader.MaxLimit),
	}
	if len(cfg.Reader.DefaultCategories) > 0 {
		readerOpts = append(readerOpts, ranking.WithDefaultCategories(cfg.Reader.DefaultCategories))
	}

	return service.New(postgres.NewCandidateRepository(b.db), b.store, content,
		service.WithScorer(scorer),
		service.WithInterests(postgres.NewInterestRepository(b.db)),
		service.WithJobDefaults(model.JobParameters{
			SinceHours:  cfg.Job.SinceHours,
			MaxAgeHours: cfg.Job.MaxAgeHours,
			BatchSize:   cfg.Job.BatchSize,
			ForceAll:    cfg.Job.ForceAll,
		}),
		service.WithSchedule(cfg.Job.ScheduleInterval, cfg.Job.RunOnStart),
		service.WithRetry(cfg.Job.Attempts, cfg.Job.Backoff),
		service.WithQueueSize(cfg.Job.QueueSize),
		service.WithConcurrency(cfg.Job.Concurrency),
		service.WithRetention(cfg.Job.Retention),
		service.WithDedupeSize(cfg.Job.DedupeSize),
		service.WithReaderOptions(readerOpts...),
		service.WithLogger(log.Named("explore")),
	)
}

// newRouter mounts the business API and the API docs.
func newRouter(cfg *config.Config, svc *service.Service, checks map[string]api.Checker, log logger.Logger) chi.Router {
	opts := []api.Option{
		api.WithAuthenticator(api.NewAuthenticator(cfg.Auth.JWTSecret)),
		api.WithRateLimit(api.RateLimitConfig{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
			Disabled: cfg.RateLimit.Disabled,
		}),
		api.WithStats(svc),
		api.WithLogger(log.Named("http")),
	}
	for name, c := range checks {
		opts = append(opts, api.WithChecker(name, c))
	}

	router := api.NewServer(svc, svc, opts...).Router()
	swagger.Register(router)
	return router
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes the queue gauges on a fixed cadence.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateServiceMetrics mirrors the job queue counters into the queue gauges.
func updateServiceMetrics(svc *service.Service) {
	st := svc.Stats()
	metrics.UpdateQueueJobs("waiting", st.Waiting)
	metrics.UpdateQueueJobs("active", st.Active)
	metrics.UpdateQueueJobs("delayed", st.Delayed)
	metrics.UpdateQueueJobs("completed", st.Completed)
	metrics.UpdateQueueJobs("failed", st.Failed)
	metrics.UpdateQueueJobs("paused", st.Paused)
	metrics.UpdateQueueJobs("queued", st.Queued)
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
