// Package jobs is a small job service over an in-memory priority queue.
//
// A Service is generic over the payload P and result R of one job family.
// It tracks every job's state, retries failed attempts with exponential
// backoff, and can be paused, resumed, cleaned and scheduled.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/buzz/internal/adapters/mq/queue"
	"github.com/okian/buzz/internal/adapters/mq/scheduler"
	"github.com/okian/buzz/internal/adapters/mq/worker"
	"github.com/okian/buzz/pkg/logger"
	"github.com/okian/buzz/pkg/metrics"
)

// Handler runs one attempt of a job. progress accepts 0..100.
type Handler[P, R any] func(ctx context.Context, payload P, progress func(int)) (R, error)

// Service owns the queue, workers and job registry of one job family.
type Service[P, R any] struct {
	name    string
	handler Handler[P, R]
	cfg     settings
	log     logger.Logger

	queue *queue.Queue[string]
	pool  *worker.Pool[string]

	mu      sync.Mutex
	jobs    map[string]*Job[P, R]
	timers  map[string]*time.Timer
	paused  bool
	closing bool
	resume  chan struct{}
	sched   *scheduler.Scheduler
}

// NewService creates a service. Call Start to begin processing.
func NewService[P, R any](name string, handler Handler[P, R], opts ...Option) *Service[P, R] {
	cfg := settings{
		attempts:    defaultAttempts,
		backoff:     defaultBackoff,
		maxBackoff:  defaultMaxBackoff,
		capacity:    defaultCapacity,
		concurrency: defaultConcurrency,
		retention:   defaultRetention,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("jobs")
	}

	s := &Service[P, R]{
		name:    name,
		handler: handler,
		cfg:     cfg,
		log:     cfg.logger.Named(name),
		queue:   queue.New[string](queue.WithCapacity(cfg.capacity), queue.WithName(name)),
		jobs:    make(map[string]*Job[P, R]),
		timers:  make(map[string]*time.Timer),
	}
	s.pool = worker.NewPool[string](cfg.concurrency, s, s.process, worker.WithName(name), worker.WithLogger(s.log))
	return s
}

// Start launches the workers.
func (s *Service[P, R]) Start(ctx context.Context) {
	s.pool.Start(ctx)
}

// Enqueue adds a job. A JobID that is already known returns ErrDuplicate
// together with that id.
func (s *Service[P, R]) Enqueue(ctx context.Context, payload P, opts EnqueueOptions) (string, error) {
	id := opts.JobID
	if id == "" {
		id = uuid.NewString()
	} else if s.known(ctx, id) {
		return id, ErrDuplicate
	}

	job := &Job[P, R]{
		ID:        id,
		Name:      s.name,
		Payload:   payload,
		State:     StateWaiting,
		Priority:  opts.Priority.String(),
		Attempts:  s.cfg.attempts,
		CreatedAt: s.cfg.now(),
		priority:  opts.Priority,
		backoff:   s.cfg.backoff,
	}
	if opts.Attempts > 0 {
		job.Attempts = opts.Attempts
	}
	if opts.Backoff > 0 {
		job.backoff = opts.Backoff
	}

	s.mu.Lock()
	s.pruneLocked(StateCompleted, s.cfg.retention)
	s.pruneLocked(StateFailed, s.cfg.retention)
	s.jobs[id] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(ctx, id, opts.Priority); err != nil {
		s.mu.Lock()
		delete(s.jobs, id)
		s.mu.Unlock()
		if opts.JobID != "" && s.cfg.deduper != nil {
			s.cfg.deduper.Unrecord(ctx, id)
		}
		return "", classify(err)
	}

	s.publishStats()
	s.log.Debug(ctx, "job enqueued", logger.String("job_id", id), logger.String("priority", job.Priority))
	return id, nil
}

// Trigger enqueues and folds any failure into the result.
func (s *Service[P, R]) Trigger(ctx context.Context, payload P, opts EnqueueOptions) TriggerResult {
	id, err := s.Enqueue(ctx, payload, opts)
	switch {
	case err == nil:
		return TriggerResult{Success: true, JobID: id}
	case errors.Is(err, ErrDuplicate):
		return TriggerResult{Success: true, JobID: id, Duplicate: true}
	default:
		s.log.Warn(ctx, "trigger failed", logger.Error(err))
		metrics.RecordErrorByComponent("jobs", "trigger")
		return TriggerResult{Success: false, Error: err.Error()}
	}
}

// Schedule triggers payload every interval until Shutdown. Ticks that land
// while the service is paused are skipped.
func (s *Service[P, R]) Schedule(ctx context.Context, interval time.Duration, runOnStart bool, payload P) {
	fire := func(ctx context.Context) {
		res := s.triggerScheduled(ctx, payload)
		if !res.Success {
			s.log.Warn(ctx, "scheduled run skipped", logger.String("reason", res.Error))
		}
	}

	s.mu.Lock()
	if s.sched != nil {
		s.mu.Unlock()
		return
	}
	s.sched = scheduler.New(interval, fire, scheduler.WithRunOnStart(runOnStart), scheduler.WithLogger(s.log))
	sched := s.sched
	s.mu.Unlock()

	sched.Start(ctx)
}

func (s *Service[P, R]) triggerScheduled(ctx context.Context, payload P) TriggerResult {
	s.mu.Lock()
	paused := s.paused
	s.mu.Unlock()
	if paused {
		return TriggerResult{Success: false, Error: ErrPaused.Error()}
	}
	return s.Trigger(ctx, payload, EnqueueOptions{Priority: queue.PriorityNormal})
}

// Get returns a snapshot of one job.
func (s *Service[P, R]) Get(id string) (Job[P, R], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job[P, R]{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *job, nil
}

// Stats counts jobs by state.
func (s *Service[P, R]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

// Pause stops workers from starting new jobs. Enqueue still accepts jobs.
func (s *Service[P, R]) Pause() {
	s.mu.Lock()
	if !s.paused {
		s.paused = true
		s.resume = make(chan struct{})
	}
	s.mu.Unlock()
	s.publishStats()
	s.log.Info(context.Background(), "queue paused")
}

// Resume lets workers pick up jobs again.
func (s *Service[P, R]) Resume() {
	s.mu.Lock()
	if s.paused {
		s.paused = false
		close(s.resume)
	}
	s.mu.Unlock()
	s.publishStats()
	s.log.Info(context.Background(), "queue resumed")
}

// Clean removes completed or failed jobs that finished more than grace ago
// and returns how many were removed.
func (s *Service[P, R]) Clean(grace time.Duration, state State) (int, error) {
	if state != StateCompleted && state != StateFailed {
		return 0, fmt.Errorf("%w: %q", ErrInvalidState, state)
	}
	s.mu.Lock()
	n := s.pruneLocked(state, grace)
	s.mu.Unlock()
	s.publishStats()
	return n, nil
}

// Shutdown stops scheduling, cancels pending retries and drains workers.
func (s *Service[P, R]) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	sched := s.sched
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	if sched != nil {
		sched.Stop()
	}
	_ = s.queue.Close()
	return s.pool.Shutdown(ctx)
}

// Dequeue hands the next job id to a worker, holding it while paused.
func (s *Service[P, R]) Dequeue(ctx context.Context) (string, error) {
	if err := s.waitResumed(ctx); err != nil {
		return "", err
	}
	id, err := s.queue.Dequeue(ctx)
	if err != nil {
		return "", err
	}
	if err := s.waitResumed(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service[P, R]) waitResumed(ctx context.Context) error {
	for {
		s.mu.Lock()
		if !s.paused {
			s.mu.Unlock()
			return nil
		}
		ch := s.resume
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// process runs one attempt of a job.
func (s *Service[P, R]) process(ctx context.Context, id string) error {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	started := s.cfg.now()
	job.State = StateActive
	job.AttemptsMade++
	job.Progress = 0
	job.StartedAt = &started
	payload := job.Payload
	s.mu.Unlock()
	s.publishStats()

	progress := func(p int) {
		s.mu.Lock()
		job.Progress = p
		s.mu.Unlock()
		metrics.UpdateJobProgress(p)
	}

	result, err := s.handler(ctx, payload, progress)

	s.mu.Lock()
	finished := s.cfg.now()
	job.Result = &result
	if err == nil {
		job.State = StateCompleted
		job.FailedReason = ""
		job.FinishedAt = &finished
		s.mu.Unlock()
		s.publishStats()
		return nil
	}

	job.FailedReason = err.Error()
	// No retries are armed once Shutdown has cleared the timers.
	if job.AttemptsMade < job.Attempts && !s.closing {
		delay := worker.Backoff(job.backoff, job.AttemptsMade, s.cfg.maxBackoff)
		job.State = StateDelayed
		prio := job.priority
		s.timers[id] = time.AfterFunc(delay, func() { s.retry(id, prio) })
		attempt := job.AttemptsMade
		s.mu.Unlock()

		metrics.RecordWorkerRetry()
		s.publishStats()
		s.log.Warn(ctx, "job attempt failed, retrying",
			logger.String("job_id", id),
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Error(err),
		)
		return fmt.Errorf("job %s attempt %d: %w", id, attempt, err)
	}

	job.State = StateFailed
	job.FinishedAt = &finished
	attempts := job.AttemptsMade
	s.mu.Unlock()
	s.publishStats()
	return fmt.Errorf("job %s failed after %d attempts: %w", id, attempts, err)
}

func (s *Service[P, R]) retry(id string, prio queue.Priority) {
	s.mu.Lock()
	delete(s.timers, id)
	job, ok := s.jobs[id]
	if !ok || job.State != StateDelayed {
		s.mu.Unlock()
		return
	}
	job.State = StateWaiting
	s.mu.Unlock()

	if err := s.queue.Enqueue(context.Background(), id, prio); err != nil {
		s.mu.Lock()
		finished := s.cfg.now()
		job.State = StateFailed
		job.FailedReason = classify(err).Error()
		job.FinishedAt = &finished
		s.mu.Unlock()
	}
	s.publishStats()
}

// known reports whether an explicit job id was already used.
func (s *Service[P, R]) known(ctx context.Context, id string) bool {
	s.mu.Lock()
	_, exists := s.jobs[id]
	s.mu.Unlock()
	if exists {
		return true
	}
	return s.cfg.deduper != nil && s.cfg.deduper.SeenAndRecord(ctx, id)
}

// pruneLocked removes jobs in state that finished before now-grace.
// Must be called with s.mu held.
func (s *Service[P, R]) pruneLocked(state State, grace time.Duration) int {
	cutoff := s.cfg.now().Add(-grace)
	n := 0
	for id, job := range s.jobs {
		if job.State != state || job.FinishedAt == nil || job.FinishedAt.After(cutoff) {
			continue
		}
		delete(s.jobs, id)
		n++
	}
	return n
}

func (s *Service[P, R]) statsLocked() Stats {
	st := Stats{Queued: s.queue.Len(), IsPaused: s.paused}
	for _, job := range s.jobs {
		switch job.State {
		case StateWaiting:
			st.Waiting++
		case StateActive:
			st.Active++
		case StateDelayed:
			st.Delayed++
		case StateCompleted:
			st.Completed++
		case StateFailed:
			st.Failed++
		}
	}
	if s.paused {
		st.Paused, st.Waiting = st.Waiting, 0
	}
	return st
}

func (s *Service[P, R]) publishStats() {
	st := s.Stats()
	metrics.UpdateQueueJobs(string(StateWaiting), st.Waiting)
	metrics.UpdateQueueJobs(string(StateActive), st.Active)
	metrics.UpdateQueueJobs(string(StateDelayed), st.Delayed)
	metrics.UpdateQueueJobs(string(StateCompleted), st.Completed)
	metrics.UpdateQueueJobs(string(StateFailed), st.Failed)
	metrics.UpdateQueueJobs("paused", st.Paused)
	metrics.UpdateQueueJobs("queued", st.Queued)
}

func classify(err error) error {
	switch {
	case errors.Is(err, queue.ErrFull):
		return fmt.Errorf("%w: %v", ErrQueueFull, err)
	case errors.Is(err, queue.ErrClosed):
		return fmt.Errorf("%w: %v", ErrQueueClosed, err)
	default:
		return err
	}
}
