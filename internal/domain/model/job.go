package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// JobParameters define the candidate window of one recalculation run.
type JobParameters struct {
	SinceHours  float64 `json:"since_hours" validate:"gte=0.1"`
	MaxAgeHours float64 `json:"max_age_hours" validate:"gte=1"`
	BatchSize   int     `json:"batch_size" validate:"gte=10"`
	ForceAll    bool    `json:"force_all"`
}

// Validate enforces the documented lower bounds.
func (p JobParameters) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return nil
}

// JobPayload is the invocation payload; every field is optional.
type JobPayload struct {
	SinceHours  *float64 `json:"since_hours,omitempty"`
	MaxAgeHours *float64 `json:"max_age_hours,omitempty"`
	BatchSize   *int     `json:"batch_size,omitempty"`
	ForceAll    *bool    `json:"force_all,omitempty"`
}

// Resolve fills absent fields from defaults.
func (p JobPayload) Resolve(defaults JobParameters) JobParameters {
	out := defaults
	if p.SinceHours != nil {
		out.SinceHours = *p.SinceHours
	}
	if p.MaxAgeHours != nil {
		out.MaxAgeHours = *p.MaxAgeHours
	}
	if p.BatchSize != nil {
		out.BatchSize = *p.BatchSize
	}
	if p.ForceAll != nil {
		out.ForceAll = *p.ForceAll
	}
	return out
}

// JobResult accumulates counters across the batch loop. A non-empty Errors
// slice does not mean the run failed.
type JobResult struct {
	TweetsProcessed   int      `json:"tweets_processed"`
	TweetsUpdated     int      `json:"tweets_updated"`
	CategoriesUpdated int      `json:"categories_updated"`
	DurationMS        int64    `json:"duration_ms"`
	Errors            []string `json:"errors"`
}
