// Package candidates builds the eligibility window for a recalculation run
// and defines the repository that pages through eligible snapshots.
package candidates

import (
	"context"
	"time"

	"github.com/okian/buzz/internal/domain/model"
)

// Filter is the storage-agnostic form of a batch window.
//
// CreatedAfter is always enforced. ActiveAfter is nil when the run is a
// force_all run; otherwise a snapshot must have been updated or created
// after it.
type Filter struct {
	CreatedAfter time.Time
	ActiveAfter  *time.Time
}

// NewFilter derives the filter for params evaluated at now.
func NewFilter(now time.Time, params model.JobParameters) Filter {
	f := Filter{CreatedAfter: now.Add(-hours(params.MaxAgeHours))}
	if !params.ForceAll {
		active := now.Add(-hours(params.SinceHours))
		f.ActiveAfter = &active
	}
	return f
}

// Matches evaluates the filter against a snapshot in memory.
func (f Filter) Matches(s model.EngagementSnapshot) bool { //nolint:gocritic // hugeParam: snapshots are read-only values
	if !s.CreatedAt.After(f.CreatedAfter) {
		return false
	}
	if f.ActiveAfter == nil {
		return true
	}
	return s.UpdatedAt.After(*f.ActiveAfter) || s.CreatedAt.After(*f.ActiveAfter)
}

// Repository pages through snapshots matching a filter, most recently
// updated first.
type Repository interface {
	Count(ctx context.Context, f Filter) (int, error)
	FetchPage(ctx context.Context, f Filter, skip, take int) ([]model.EngagementSnapshot, error)
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
