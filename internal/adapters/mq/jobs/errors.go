package jobs

import "errors"

// Sentinel kinds for job service errors.
var (
	ErrQueueClosed  = errors.New("job queue closed")
	ErrQueueFull    = errors.New("job queue full")
	ErrPaused       = errors.New("job queue paused")
	ErrDuplicate    = errors.New("duplicate job id")
	ErrInvalidState = errors.New("invalid job state")
	ErrNotFound     = errors.New("job not found")
)
