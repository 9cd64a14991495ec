package jobs

import (
	"time"

	"github.com/okian/buzz/internal/adapters/mq/queue"
)

// State is the lifecycle position of a job.
type State string

// Job states.
const (
	StateWaiting   State = "waiting"
	StateActive    State = "active"
	StateDelayed   State = "delayed"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// EnqueueOptions override per-job behaviour. Zero values take the service
// defaults.
type EnqueueOptions struct {
	Priority queue.Priority
	JobID    string
	Attempts int
	Backoff  time.Duration
}

// Job is a snapshot of one job.
type Job[P, R any] struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Payload      P          `json:"payload"`
	State        State      `json:"state"`
	Priority     string     `json:"priority"`
	Progress     int        `json:"progress"`
	Attempts     int        `json:"attempts"`
	AttemptsMade int        `json:"attempts_made"`
	Result       *R         `json:"result,omitempty"`
	FailedReason string     `json:"failed_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`

	priority queue.Priority
	backoff  time.Duration
}

// Stats counts jobs by state. While paused, waiting jobs count as Paused.
// Queued is the number of job ids held in the queue lanes.
type Stats struct {
	Queued    int  `json:"queued"`
	Waiting   int  `json:"waiting"`
	Active    int  `json:"active"`
	Completed int  `json:"completed"`
	Failed    int  `json:"failed"`
	Delayed   int  `json:"delayed"`
	Paused    int  `json:"paused"`
	IsPaused  bool `json:"is_paused"`
}

// TriggerResult reports the outcome of a trigger without raising.
type TriggerResult struct {
	Success   bool   `json:"success"`
	JobID     string `json:"job_id,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Error     string `json:"error,omitempty"`
}
