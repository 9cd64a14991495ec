// Package trending recalculates the category leaderboards.
//
// A run counts eligible snapshots, then walks them page by page: each page
// is scored, written to the leaderboard and trimmed. A failing page is
// recorded and skipped; only counting and the first fetch can fail a run.
package trending

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/buzz/internal/adapters/leaderboard"
	"github.com/okian/buzz/internal/domain/candidates"
	"github.com/okian/buzz/internal/domain/model"
	"github.com/okian/buzz/internal/domain/scoring"
	"github.com/okian/buzz/pkg/logger"
	"github.com/okian/buzz/pkg/metrics"
)

// Progress milestones.
const (
	progressCounted = 15
	progressDone    = 100
)

// DefaultParameters are used when no WithDefaults option is given.
var DefaultParameters = model.JobParameters{SinceHours: 2, MaxAgeHours: 72, BatchSize: 500}

// Job is one recalculation pipeline. It holds no per-run state, so a single
// Job may serve overlapping runs.
type Job struct {
	source   candidates.Repository
	scorer   scoring.Scorer
	store    leaderboard.Store
	defaults model.JobParameters
	now      func() time.Time
	log      logger.Logger
}

// New wires a job to its collaborators.
func New(source candidates.Repository, scorer scoring.Scorer, store leaderboard.Store, opts ...Option) *Job {
	j := &Job{
		source:   source,
		scorer:   scorer,
		store:    store,
		defaults: DefaultParameters,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.log == nil {
		j.log = logger.Get().Named("trending")
	}
	return j
}

// Defaults returns the parameters applied to empty payload fields.
func (j *Job) Defaults() model.JobParameters { return j.defaults }

// Run executes one recalculation. progress may be nil.
//
// The returned result is populated even when err is non-nil; in that case
// its Errors end with a "Fatal: ..." entry and err wraps ErrFatal.
func (j *Job) Run(ctx context.Context, payload model.JobPayload, progress func(int)) (model.JobResult, error) {
	if progress == nil {
		progress = func(int) {}
	}
	start := j.now()
	res := model.JobResult{Errors: []string{}}

	// Bounds are enforced where payloads enter the system; a run only needs
	// a usable page size.
	params := payload.Resolve(j.defaults)
	if params.BatchSize < 1 {
		return j.fail(ctx, res, start, fmt.Errorf("%w: batch size %d", model.ErrInvalidParameters, params.BatchSize))
	}

	filter := candidates.NewFilter(start, params)
	total, err := j.source.Count(ctx, filter)
	if err != nil {
		return j.fail(ctx, res, start, err)
	}

	log := j.log
	log.Info(ctx, "recalculation started",
		logger.Int("candidates", total),
		logger.Float64("since_hours", params.SinceHours),
		logger.Float64("max_age_hours", params.MaxAgeHours),
		logger.Int("batch_size", params.BatchSize),
		logger.Bool("force_all", params.ForceAll),
	)

	if total == 0 {
		progress(progressDone)
		res.DurationMS = j.since(start)
		metrics.RecordJobRun(metrics.OutcomeEmpty, float64(res.DurationMS))
		log.Info(ctx, "no candidates, nothing to do")
		return res, nil
	}
	progress(progressCounted)

	categories := make(map[string]struct{})
	processed := 0
	for page := 0; processed < total && page*params.BatchSize < total; page++ {
		if err := ctx.Err(); err != nil {
			return j.fail(ctx, res, start, err)
		}

		batch, err := j.source.FetchPage(ctx, filter, page*params.BatchSize, params.BatchSize)
		if err != nil {
			if page == 0 {
				return j.fail(ctx, res, start, err)
			}
			j.pageFailed(ctx, &res, page, err)
			continue
		}
		if len(batch) == 0 {
			break
		}

		touched, err := j.persist(ctx, batch)
		if err != nil {
			j.pageFailed(ctx, &res, page, err)
			continue
		}
		for _, id := range touched {
			categories[id] = struct{}{}
		}

		processed += len(batch)
		res.TweetsProcessed += len(batch)
		res.TweetsUpdated += len(batch)
		metrics.RecordTweetsScored(len(batch))
		progress(percent(processed, total))
	}

	res.CategoriesUpdated = len(categories)
	res.DurationMS = j.since(start)
	progress(progressDone)

	outcome := metrics.OutcomeCompleted
	if len(res.Errors) > 0 {
		outcome = metrics.OutcomePartial
	}
	metrics.RecordJobRun(outcome, float64(res.DurationMS))
	log.Info(ctx, "recalculation finished",
		logger.Int("tweets_processed", res.TweetsProcessed),
		logger.Int("categories_updated", res.CategoriesUpdated),
		logger.Int("failed_pages", len(res.Errors)),
		logger.Int64("duration_ms", res.DurationMS),
	)
	return res, nil
}

// persist scores one page, writes it and trims what it touched.
func (j *Job) persist(ctx context.Context, batch []model.EngagementSnapshot) ([]string, error) {
	items := scoring.ScoreAll(j.scorer, batch, j.now())
	touched, err := j.store.UpdateScores(ctx, items)
	if err != nil {
		return nil, err
	}
	if err := j.store.Trim(ctx, touched); err != nil {
		return nil, err
	}
	return touched, nil
}

func (j *Job) pageFailed(ctx context.Context, res *model.JobResult, page int, err error) {
	res.Errors = append(res.Errors, fmt.Sprintf("Page %d failed: %v", page+1, err))
	metrics.RecordBatchError()
	j.log.Warn(ctx, "page failed", logger.Int("page", page+1), logger.Error(err))
}

func (j *Job) fail(ctx context.Context, res model.JobResult, start time.Time, err error) (model.JobResult, error) {
	res.Errors = append(res.Errors, "Fatal: "+err.Error())
	res.DurationMS = j.since(start)
	metrics.RecordJobRun(metrics.OutcomeFailed, float64(res.DurationMS))
	j.log.Error(ctx, "recalculation failed", logger.Error(err))
	return res, fmt.Errorf("%w: %w", ErrFatal, err)
}

func (j *Job) since(start time.Time) int64 {
	return j.now().Sub(start).Milliseconds()
}

func percent(processed, total int) int {
	p := int(math.Floor(progressCounted + float64(processed)/float64(total)*(progressDone-progressCounted)))
	if p > progressDone {
		return progressDone
	}
	return p
}
