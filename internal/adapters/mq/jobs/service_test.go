package jobs_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/buzz/internal/adapters/mq/jobs"
	"github.com/okian/buzz/internal/adapters/mq/queue"
	"github.com/okian/buzz/internal/domain/dedupe"
	"github.com/okian/buzz/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func state(svc *jobs.Service[int, string], id string) jobs.State {
	job, err := svc.Get(id)
	if err != nil {
		return ""
	}
	return job.State
}

func newService(h jobs.Handler[int, string], opts ...jobs.Option) *jobs.Service[int, string] {
	opts = append([]jobs.Option{jobs.WithLogger(logger.Nop()), jobs.WithBackoff(5 * time.Millisecond)}, opts...)
	return jobs.NewService("test", h, opts...)
}

func echo(_ context.Context, n int, progress func(int)) (string, error) {
	progress(100)
	return fmt.Sprintf("done-%d", n), nil
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		Convey("When a job succeeds", func() {
			svc := newService(echo)
			svc.Start(ctx)
			defer func() { _ = svc.Shutdown(context.Background()) }()

			res := svc.Trigger(ctx, 7, jobs.EnqueueOptions{})

			Convey("Then it completes with its result", func() {
				So(res.Success, ShouldBeTrue)
				So(res.JobID, ShouldNotBeEmpty)
				So(eventually(func() bool { return state(svc, res.JobID) == jobs.StateCompleted }), ShouldBeTrue)

				job, err := svc.Get(res.JobID)
				So(err, ShouldBeNil)
				So(*job.Result, ShouldEqual, "done-7")
				So(job.Progress, ShouldEqual, 100)
				So(job.AttemptsMade, ShouldEqual, 1)
				So(svc.Stats().Completed, ShouldEqual, 1)
			})
		})

		Convey("When a job fails twice then succeeds", func() {
			var calls atomic.Int32
			svc := newService(func(_ context.Context, n int, _ func(int)) (string, error) {
				if calls.Add(1) < 3 {
					return "", errors.New("transient")
				}
				return "ok", nil
			})
			svc.Start(ctx)
			defer func() { _ = svc.Shutdown(context.Background()) }()

			id, err := svc.Enqueue(ctx, 1, jobs.EnqueueOptions{})

			Convey("Then the third attempt completes it", func() {
				So(err, ShouldBeNil)
				So(eventually(func() bool { return state(svc, id) == jobs.StateCompleted }), ShouldBeTrue)
				job, _ := svc.Get(id)
				So(job.AttemptsMade, ShouldEqual, 3)
				So(job.FailedReason, ShouldBeEmpty)
			})
		})

		Convey("When a job keeps failing", func() {
			svc := newService(func(context.Context, int, func(int)) (string, error) {
				return "partial", errors.New("fatal")
			}, jobs.WithAttempts(2))
			svc.Start(ctx)
			defer func() { _ = svc.Shutdown(context.Background()) }()

			id, _ := svc.Enqueue(ctx, 1, jobs.EnqueueOptions{})

			Convey("Then it fails after the configured attempts", func() {
				So(eventually(func() bool { return state(svc, id) == jobs.StateFailed }), ShouldBeTrue)
				job, _ := svc.Get(id)
				So(job.AttemptsMade, ShouldEqual, 2)
				So(job.FailedReason, ShouldEqual, "fatal")
				So(*job.Result, ShouldEqual, "partial")
				So(svc.Stats().Failed, ShouldEqual, 1)
			})
		})

		Convey("When the same job id is triggered twice", func() {
			svc := newService(echo, jobs.WithDeduper(dedupe.NewInMemoryDeduper()))
			first := svc.Trigger(ctx, 1, jobs.EnqueueOptions{JobID: "manual-1"})
			second := svc.Trigger(ctx, 1, jobs.EnqueueOptions{JobID: "manual-1"})

			Convey("Then the repeat is reported as a duplicate of the first", func() {
				So(first.Success, ShouldBeTrue)
				So(first.Duplicate, ShouldBeFalse)
				So(second.Success, ShouldBeTrue)
				So(second.Duplicate, ShouldBeTrue)
				So(second.JobID, ShouldEqual, "manual-1")
				So(svc.Stats().Waiting, ShouldEqual, 1)
			})
		})

		Convey("When the job id is unknown", func() {
			svc := newService(echo)
			_, err := svc.Get("nope")

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(err, jobs.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestServiceQueueing(t *testing.T) {
	Convey("Given a service with no running workers", t, func() {
		ctx := context.Background()

		Convey("When the queue overflows", func() {
			svc := newService(echo, jobs.WithCapacity(1), jobs.WithDeduper(dedupe.NewInMemoryDeduper()))
			ok := svc.Trigger(ctx, 1, jobs.EnqueueOptions{})
			full := svc.Trigger(ctx, 2, jobs.EnqueueOptions{JobID: "retry-me"})

			Convey("Then the failure comes back as a result, not a panic", func() {
				So(ok.Success, ShouldBeTrue)
				So(full.Success, ShouldBeFalse)
				So(full.Error, ShouldContainSubstring, jobs.ErrQueueFull.Error())
				So(svc.Stats().Waiting, ShouldEqual, 1)
			})

			Convey("Then the rejected job id can be reused", func() {
				again := svc.Trigger(ctx, 2, jobs.EnqueueOptions{JobID: "retry-me", Priority: queue.PriorityHigh})
				So(again.Success, ShouldBeTrue)
				So(again.Duplicate, ShouldBeFalse)
			})
		})

		Convey("When jobs of both priorities wait", func() {
			var mu sync.Mutex
			var order []int
			svc := newService(func(_ context.Context, n int, _ func(int)) (string, error) {
				mu.Lock()
				order = append(order, n)
				mu.Unlock()
				return "", nil
			})
			_, _ = svc.Enqueue(ctx, 1, jobs.EnqueueOptions{})
			_, _ = svc.Enqueue(ctx, 2, jobs.EnqueueOptions{})
			_, _ = svc.Enqueue(ctx, 3, jobs.EnqueueOptions{Priority: queue.PriorityHigh})
			So(svc.Stats().Queued, ShouldEqual, 3)
			So(svc.Stats().Waiting, ShouldEqual, 3)

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			svc.Start(runCtx)
			defer func() { _ = svc.Shutdown(context.Background()) }()

			Convey("Then the high priority job runs first", func() {
				So(eventually(func() bool { return svc.Stats().Completed == 3 }), ShouldBeTrue)
				mu.Lock()
				defer mu.Unlock()
				So(order, ShouldResemble, []int{3, 1, 2})
				So(svc.Stats().Queued, ShouldEqual, 0)
			})
		})

		Convey("When the service is shut down", func() {
			svc := newService(echo)
			So(svc.Shutdown(ctx), ShouldBeNil)
			res := svc.Trigger(ctx, 1, jobs.EnqueueOptions{})

			Convey("Then triggers report a closed queue", func() {
				So(res.Success, ShouldBeFalse)
				So(res.Error, ShouldContainSubstring, jobs.ErrQueueClosed.Error())
			})
		})
	})
}

func TestServiceShutdownDuringRun(t *testing.T) {
	Convey("Given a job that is running when shutdown begins", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var calls atomic.Int32
		running := make(chan struct{}, 1)
		svc := newService(func(ctx context.Context, n int, _ func(int)) (string, error) {
			if n == 1 {
				calls.Add(1)
				running <- struct{}{}
			}
			<-ctx.Done()
			return "", errors.New("interrupted")
		}, jobs.WithAttempts(3))
		svc.Start(ctx)

		res := svc.Trigger(ctx, 1, jobs.EnqueueOptions{})
		So(res.Success, ShouldBeTrue)
		<-running

		done := make(chan error, 1)
		go func() { done <- svc.Shutdown(context.Background()) }()
		So(eventually(func() bool { return !svc.Trigger(ctx, 2, jobs.EnqueueOptions{}).Success }), ShouldBeTrue)

		Convey("When the run is interrupted", func() {
			cancel()
			So(<-done, ShouldBeNil)

			Convey("Then it fails at once instead of arming a retry", func() {
				job, err := svc.Get(res.JobID)
				So(err, ShouldBeNil)
				So(job.State, ShouldEqual, jobs.StateFailed)
				So(job.FailedReason, ShouldEqual, "interrupted")
				So(job.AttemptsMade, ShouldEqual, 1)
				So(svc.Stats().Delayed, ShouldEqual, 0)

				time.Sleep(50 * time.Millisecond)
				job, _ = svc.Get(res.JobID)
				So(job.FailedReason, ShouldEqual, "interrupted")
				So(calls.Load(), ShouldEqual, 1)
			})
		})
	})
}

func TestServicePauseAndClean(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		svc := newService(echo)
		svc.Start(ctx)
		defer func() { _ = svc.Shutdown(context.Background()) }()

		Convey("When paused", func() {
			svc.Pause()
			id, err := svc.Enqueue(ctx, 1, jobs.EnqueueOptions{})
			So(err, ShouldBeNil)
			time.Sleep(30 * time.Millisecond)

			Convey("Then jobs wait and count as paused", func() {
				st := svc.Stats()
				So(st.IsPaused, ShouldBeTrue)
				So(st.Paused, ShouldEqual, 1)
				So(st.Waiting, ShouldEqual, 0)
				So(state(svc, id), ShouldEqual, jobs.StateWaiting)
			})

			Convey("Then scheduled ticks are skipped", func() {
				before := svc.Stats().Paused
				svc.Schedule(ctx, time.Hour, true, 2)
				time.Sleep(20 * time.Millisecond)
				So(svc.Stats().Paused, ShouldEqual, before)
			})

			Convey("And resumed, the job runs", func() {
				svc.Resume()
				So(eventually(func() bool { return state(svc, id) == jobs.StateCompleted }), ShouldBeTrue)
				So(svc.Stats().IsPaused, ShouldBeFalse)
			})
		})

		Convey("When finished jobs are cleaned", func() {
			id, _ := svc.Enqueue(ctx, 1, jobs.EnqueueOptions{})
			So(eventually(func() bool { return state(svc, id) == jobs.StateCompleted }), ShouldBeTrue)

			kept, err1 := svc.Clean(time.Hour, jobs.StateCompleted)
			removed, err2 := svc.Clean(0, jobs.StateCompleted)
			_, err3 := svc.Clean(0, jobs.StateActive)

			Convey("Then only jobs past the grace period go", func() {
				So(err1, ShouldBeNil)
				So(kept, ShouldEqual, 0)
				So(err2, ShouldBeNil)
				So(removed, ShouldEqual, 1)
				So(errors.Is(err3, jobs.ErrInvalidState), ShouldBeTrue)
				_, err := svc.Get(id)
				So(errors.Is(err, jobs.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When scheduled every 10ms", func() {
			svc.Schedule(ctx, 10*time.Millisecond, true, 5)

			Convey("Then runs keep completing", func() {
				So(eventually(func() bool { return svc.Stats().Completed >= 3 }), ShouldBeTrue)
			})
		})
	})
}
