package explorecheck

import "errors"

var (
	// ErrTriggerRejected is returned when the service refuses to enqueue.
	ErrTriggerRejected = errors.New("recalculation not accepted")
	// ErrJobFailed is returned when the recalculation job ends failed.
	ErrJobFailed = errors.New("recalculation job failed")
	// ErrJobTimeout is returned when the job does not finish in time.
	ErrJobTimeout = errors.New("recalculation job did not finish in time")
	// ErrInconsistent is returned when any read view breaks an ordering rule.
	ErrInconsistent = errors.New("explore views are inconsistent")
)
