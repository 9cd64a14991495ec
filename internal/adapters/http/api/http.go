// Package api exposes the explore read endpoints and the recalculation job
// controls over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/okian/buzz/internal/adapters/mq/jobs"
	"github.com/okian/buzz/internal/domain/model"
	"github.com/okian/buzz/internal/domain/types"
	"github.com/okian/buzz/pkg/logger"
	"github.com/okian/buzz/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reader serves the ranked views.
type Reader interface {
	CategoryPage(ctx context.Context, categoryID string, page, limit int) types.CategoryPage
	Feed(ctx context.Context, userID string) types.Feed
	DefaultLimit() int
	MaxLimit() int
}

// Job is the record of one recalculation run.
type Job = jobs.Job[model.JobPayload, model.JobResult]

// JobQueue controls recalculation runs.
type JobQueue interface {
	Trigger(ctx context.Context, payload model.JobPayload, opts jobs.EnqueueOptions) jobs.TriggerResult
	Get(id string) (Job, error)
	Stats() jobs.Stats
	Pause()
	Resume()
	Clean(grace time.Duration, state jobs.State) (int, error)
}

// RateLimitConfig bounds requests per client on the read endpoints.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Disabled bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	categoryHandler *CategoryHandler
	feedHandler     *FeedHandler
	jobsHandler     *JobsHandler

	auth *Authenticator
	rate RateLimitConfig
	log  logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*serverOptions)

type serverOptions struct {
	auth     *Authenticator
	rate     RateLimitConfig
	stats    StatsProvider
	checkers map[string]Checker
	log      logger.Logger
}

// WithAuthenticator sets the bearer token verifier.
func WithAuthenticator(a *Authenticator) Option {
	return func(o *serverOptions) {
		if a != nil {
			o.auth = a
		}
	}
}

// WithRateLimit sets the read endpoint rate limit.
func WithRateLimit(cfg RateLimitConfig) Option {
	return func(o *serverOptions) { o.rate = cfg }
}

// WithStats sets the provider behind GET /stats.
func WithStats(p StatsProvider) Option {
	return func(o *serverOptions) {
		if p != nil {
			o.stats = p
		}
	}
}

// WithChecker adds a named dependency to GET /healthz.
func WithChecker(name string, c Checker) Option {
	return func(o *serverOptions) {
		if c != nil {
			o.checkers[name] = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(reader Reader, queue JobQueue, opts ...Option) *Server {
	o := serverOptions{
		auth:     NewAuthenticator(""),
		stats:    StatsFunc(func() map[string]any { return map[string]any{} }),
		checkers: make(map[string]Checker),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get().Named("api")
	}
	return &Server{
		healthHandler:   NewHealthHandler(o.checkers),
		statsHandler:    NewStatsHandler(o.stats),
		categoryHandler: NewCategoryHandler(reader),
		feedHandler:     NewFeedHandler(reader, o.auth),
		jobsHandler:     NewJobsHandler(queue, o.log),
		auth:            o.auth,
		rate:            o.rate,
		log:             o.log,
	}
}

// Router builds the route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.auth.Middleware)

	r.With(MetricsMiddleware("healthz")).Get("/healthz", s.healthHandler.HandleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	r.With(MetricsMiddleware("stats")).Get("/stats", s.statsHandler.HandleStats)

	r.Route("/explore", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RateLimit(s.rate))
			r.With(MetricsMiddleware("category")).Get("/categories/{categoryID}", s.categoryHandler.HandleGetCategory)
			r.With(MetricsMiddleware("for_you")).Get("/for-you", s.feedHandler.HandleGetFeed)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Use(s.auth.RequireAdmin)
			r.With(MetricsMiddleware("jobs_recalculate")).Post("/recalculate", s.jobsHandler.HandleRecalculate)
			r.With(MetricsMiddleware("jobs_stats")).Get("/stats", s.jobsHandler.HandleStats)
			r.With(MetricsMiddleware("jobs_pause")).Post("/pause", s.jobsHandler.HandlePause)
			r.With(MetricsMiddleware("jobs_resume")).Post("/resume", s.jobsHandler.HandleResume)
			r.With(MetricsMiddleware("jobs_clean")).Post("/clean", s.jobsHandler.HandleClean)
			r.With(MetricsMiddleware("jobs_get")).Get("/{jobID}", s.jobsHandler.HandleGetJob)
		})
	})
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
