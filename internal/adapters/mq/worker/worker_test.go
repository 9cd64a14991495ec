package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/buzz/internal/adapters/mq/queue"
	worker "github.com/okian/buzz/internal/adapters/mq/worker"
	logging "github.com/okian/buzz/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type recorder struct {
	mu    sync.Mutex
	seen  []string
	fails map[string]error
}

func newRecorder() *recorder {
	return &recorder{fails: make(map[string]error)}
}

func (r *recorder) handle(_ context.Context, item string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, item)
	return r.fails[item]
}

func (r *recorder) items() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestWorker(t *testing.T) {
	convey.Convey("Given a worker over a queue", t, func() {
		q := queue.New[string](queue.WithCapacity(10))
		rec := newRecorder()
		w := worker.New[string](q, rec.handle, worker.WithName("test-worker"), worker.WithLogger(logging.Nop()))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When items are queued", func() {
			_ = q.Enqueue(ctx, "a", queue.PriorityNormal)
			_ = q.Enqueue(ctx, "b", queue.PriorityNormal)

			convey.Convey("Then they are handled in order", func() {
				convey.So(eventually(func() bool { return len(rec.items()) == 2 }), convey.ShouldBeTrue)
				convey.So(rec.items(), convey.ShouldResemble, []string{"a", "b"})
			})
		})

		convey.Convey("When the handler fails", func() {
			rec.mu.Lock()
			rec.fails["bad"] = errors.New("boom")
			rec.mu.Unlock()
			_ = q.Enqueue(ctx, "bad", queue.PriorityNormal)
			_ = q.Enqueue(ctx, "good", queue.PriorityNormal)

			convey.Convey("Then the worker keeps going", func() {
				convey.So(eventually(func() bool { return len(rec.items()) == 2 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer shutdownCancel()

			err := w.Shutdown(shutdownCtx)

			convey.Convey("Then it stops waiting for items", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the queue is closed", func() {
			_ = q.Enqueue(ctx, "last", queue.PriorityNormal)
			_ = q.Close()

			convey.Convey("Then remaining items drain and the worker exits", func() {
				convey.So(eventually(func() bool { return len(rec.items()) == 1 }), convey.ShouldBeTrue)
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
				defer shutdownCancel()
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of three workers", t, func() {
		q := queue.New[string](queue.WithCapacity(100))
		rec := newRecorder()
		pool := worker.NewPool[string](3, q, rec.handle, worker.WithLogger(logging.Nop()))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When many items are queued", func() {
			for i := 0; i < 50; i++ {
				_ = q.Enqueue(ctx, "item", queue.PriorityNormal)
			}

			convey.Convey("Then all are handled and the pool shuts down", func() {
				convey.So(pool.Size(), convey.ShouldEqual, 3)
				convey.So(eventually(func() bool { return len(rec.items()) == 50 }), convey.ShouldBeTrue)
				convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("A pool never has fewer than one worker", t, func() {
		q := queue.New[string]()
		pool := worker.NewPool[string](0, q, func(context.Context, string) error { return nil }, worker.WithLogger(logging.Nop()))
		convey.So(pool.Size(), convey.ShouldEqual, 1)
	})

	convey.Convey("A pool that never started shuts down at once", t, func() {
		q := queue.New[string]()
		pool := worker.NewPool[string](2, q, func(context.Context, string) error { return nil }, worker.WithLogger(logging.Nop()))

		start := time.Now()
		convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
		convey.So(time.Since(start), convey.ShouldBeLessThan, time.Second)
	})
}

func TestBackoff(t *testing.T) {
	convey.Convey("Given a 5s base delay", t, func() {
		base := 5 * time.Second

		convey.Convey("Then delays double per attempt", func() {
			convey.So(worker.Backoff(base, 1, 0), convey.ShouldEqual, 5*time.Second)
			convey.So(worker.Backoff(base, 2, 0), convey.ShouldEqual, 10*time.Second)
			convey.So(worker.Backoff(base, 3, 0), convey.ShouldEqual, 20*time.Second)
			convey.So(worker.Backoff(base, 0, 0), convey.ShouldEqual, 5*time.Second)
		})

		convey.Convey("Then the ceiling caps growth", func() {
			convey.So(worker.Backoff(base, 10, time.Minute), convey.ShouldEqual, time.Minute)
		})
	})
}
