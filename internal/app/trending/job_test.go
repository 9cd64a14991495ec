package trending_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/buzz/internal/adapters/leaderboard"
	"github.com/okian/buzz/internal/app/trending"
	"github.com/okian/buzz/internal/domain/candidates"
	"github.com/okian/buzz/internal/domain/model"
	"github.com/okian/buzz/internal/domain/scoring"
	"github.com/okian/buzz/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

// recordingRepo counts fetches and injects failures by page offset.
type recordingRepo struct {
	candidates.Repository
	fetches   int
	total     *int
	countErr  error
	fetchErrs map[int]error
}

func (r *recordingRepo) Count(ctx context.Context, f candidates.Filter) (int, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	if r.total != nil {
		return *r.total, nil
	}
	return r.Repository.Count(ctx, f)
}

func (r *recordingRepo) FetchPage(ctx context.Context, f candidates.Filter, skip, take int) ([]model.EngagementSnapshot, error) {
	r.fetches++
	if err := r.fetchErrs[skip]; err != nil {
		return nil, err
	}
	return r.Repository.FetchPage(ctx, f, skip, take)
}

// flakyStore fails the nth UpdateScores call (1-based).
type flakyStore struct {
	leaderboard.Store
	calls  int
	failOn int
}

func (s *flakyStore) UpdateScores(ctx context.Context, items []model.ScoredItem) ([]string, error) {
	s.calls++
	if s.calls == s.failOn {
		return nil, errors.New("boom")
	}
	return s.Store.UpdateScores(ctx, items)
}

func snapshot(id string, likes uint64, category string, updatedAgo time.Duration) model.EngagementSnapshot {
	return model.EngagementSnapshot{
		TweetID:    id,
		Likes:      likes,
		CreatedAt:  now.Add(-updatedAgo - time.Hour),
		UpdatedAt:  now.Add(-updatedAgo),
		Categories: []model.CategoryShare{{CategoryID: category, Percentage: 100}},
	}
}

func seed(n int) *candidates.MemoryRepository {
	repo := candidates.NewMemoryRepository()
	for i := 0; i < n; i++ {
		cat := "tech"
		if i%2 == 1 {
			cat = "sports"
		}
		repo.Put(snapshot(fmt.Sprintf("t%d", i), uint64(10+i), cat, time.Duration(i)*time.Minute))
	}
	return repo
}

func batch(n int) model.JobPayload {
	return model.JobPayload{BatchSize: &n}
}

func newJob(repo candidates.Repository, store leaderboard.Store) *trending.Job {
	return trending.New(repo, scoring.NewCalculator(), store,
		trending.WithClock(func() time.Time { return now }),
		trending.WithLogger(logger.Nop()),
	)
}

func TestJobRun(t *testing.T) {
	Convey("Given a recalculation job", t, func() {
		ctx := context.Background()
		store := leaderboard.NewMemoryStore(leaderboard.WithLogger(logger.Nop()))
		var progress []int
		report := func(p int) { progress = append(progress, p) }

		Convey("When three candidates are paged two at a time", func() {
			repo := &recordingRepo{Repository: seed(3)}
			res, err := newJob(repo, store).Run(ctx, batch(2), report)

			Convey("Then exactly two pages are fetched", func() {
				So(err, ShouldBeNil)
				So(repo.fetches, ShouldEqual, 2)
				So(res.TweetsProcessed, ShouldEqual, 3)
				So(res.TweetsUpdated, ShouldEqual, 3)
				So(res.CategoriesUpdated, ShouldEqual, 2)
				So(res.Errors, ShouldBeEmpty)
				So(progress, ShouldResemble, []int{15, 71, 100, 100})
			})

			Convey("Then the leaderboards hold the scored tweets", func() {
				tech, err := store.Range(ctx, "tech", 0, 10)
				So(err, ShouldBeNil)
				So(len(tech), ShouldEqual, 2)
				So(tech[0].TweetID, ShouldEqual, "t2")
				So(tech[0].Score, ShouldBeGreaterThan, tech[1].Score)
			})
		})

		Convey("When the count is stale", func() {
			total := 5
			repo := &recordingRepo{Repository: seed(3), total: &total}
			res, err := newJob(repo, store).Run(ctx, batch(2), report)

			Convey("Then the loop stops on the first empty page", func() {
				So(err, ShouldBeNil)
				So(repo.fetches, ShouldEqual, 3)
				So(res.TweetsProcessed, ShouldEqual, 3)
				So(res.Errors, ShouldBeEmpty)
			})
		})

		Convey("When one page fails to persist", func() {
			repo := &recordingRepo{Repository: seed(5)}
			res, err := newJob(repo, &flakyStore{Store: store, failOn: 2}).Run(ctx, batch(2), report)

			Convey("Then the failure is recorded and the other pages still count", func() {
				So(err, ShouldBeNil)
				So(res.Errors, ShouldResemble, []string{"Page 2 failed: boom"})
				So(res.TweetsProcessed, ShouldEqual, 3)
				So(res.TweetsUpdated, ShouldEqual, 3)
				So(repo.fetches, ShouldEqual, 3)
				So(progress[len(progress)-1], ShouldEqual, 100)
			})
		})

		Convey("When a later page fails to fetch", func() {
			repo := &recordingRepo{Repository: seed(5), fetchErrs: map[int]error{2: errors.New("timeout")}}
			res, err := newJob(repo, store).Run(ctx, batch(2), report)

			Convey("Then it is recorded like any failed page", func() {
				So(err, ShouldBeNil)
				So(res.Errors, ShouldResemble, []string{"Page 2 failed: timeout"})
				So(res.TweetsProcessed, ShouldEqual, 3)
			})
		})

		Convey("When there are no candidates", func() {
			repo := &recordingRepo{Repository: candidates.NewMemoryRepository()}
			res, err := newJob(repo, store).Run(ctx, model.JobPayload{}, report)

			Convey("Then an empty result completes at once", func() {
				So(err, ShouldBeNil)
				So(res.TweetsProcessed, ShouldEqual, 0)
				So(res.TweetsUpdated, ShouldEqual, 0)
				So(res.CategoriesUpdated, ShouldEqual, 0)
				So(res.Errors, ShouldBeEmpty)
				So(repo.fetches, ShouldEqual, 0)
				So(progress, ShouldResemble, []int{100})
			})
		})

		Convey("When counting fails", func() {
			cause := errors.New("db down")
			repo := &recordingRepo{Repository: seed(3), countErr: cause}
			res, err := newJob(repo, store).Run(ctx, model.JobPayload{}, report)

			Convey("Then the run is fatal and the cause propagates", func() {
				So(errors.Is(err, trending.ErrFatal), ShouldBeTrue)
				So(errors.Is(err, cause), ShouldBeTrue)
				So(res.Errors, ShouldResemble, []string{"Fatal: db down"})
				So(repo.fetches, ShouldEqual, 0)
			})
		})

		Convey("When the first fetch fails", func() {
			repo := &recordingRepo{Repository: seed(3), fetchErrs: map[int]error{0: errors.New("no route")}}
			res, err := newJob(repo, store).Run(ctx, batch(2), report)

			Convey("Then the run is fatal", func() {
				So(errors.Is(err, trending.ErrFatal), ShouldBeTrue)
				So(res.Errors, ShouldResemble, []string{"Fatal: no route"})
				So(res.TweetsProcessed, ShouldEqual, 0)
			})
		})

		Convey("When the batch size is not positive", func() {
			repo := &recordingRepo{Repository: seed(3)}
			_, err := newJob(repo, store).Run(ctx, batch(0), nil)

			Convey("Then the run is rejected before counting", func() {
				So(errors.Is(err, trending.ErrFatal), ShouldBeTrue)
				So(errors.Is(err, model.ErrInvalidParameters), ShouldBeTrue)
			})
		})
	})
}

func TestJobWindow(t *testing.T) {
	Convey("Given one fresh and one idle candidate", t, func() {
		ctx := context.Background()
		store := leaderboard.NewMemoryStore(leaderboard.WithLogger(logger.Nop()))
		repo := candidates.NewMemoryRepository(
			snapshot("fresh", 10, "tech", 10*time.Minute),
			snapshot("idle", 10, "tech", 10*time.Hour),
		)
		job := newJob(repo, store)

		Convey("When run with the default window", func() {
			res, err := job.Run(ctx, model.JobPayload{}, nil)

			Convey("Then only the recently active tweet is rescored", func() {
				So(err, ShouldBeNil)
				So(res.TweetsProcessed, ShouldEqual, 1)
			})
		})

		Convey("When run with force_all", func() {
			force := true
			res, err := job.Run(ctx, model.JobPayload{ForceAll: &force}, nil)

			Convey("Then every tweet inside max age is rescored", func() {
				So(err, ShouldBeNil)
				So(res.TweetsProcessed, ShouldEqual, 2)
				size, _ := store.Size(ctx, "tech")
				So(size, ShouldEqual, 2)
			})
		})
	})
}
