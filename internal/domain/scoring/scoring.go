// Package scoring turns engagement counts and age into a rank score.
//
// The formula is the gravity decay popularised by Hacker News:
//
//	weighted = likes*W_like + reposts*W_repost + quotes*W_quote + replies*W_reply
//	score    = weighted / (age_hours + time_offset) ^ gravity
//
// Everything here is pure: the clock is an argument.
package scoring

import (
	"math"
	"time"

	"github.com/okian/buzz/internal/domain/model"
)

// Default scoring configuration constants.
const (
	DefaultLikeWeight   = 1.0
	DefaultRepostWeight = 2.0
	DefaultQuoteWeight  = 3.0
	DefaultReplyWeight  = 1.0
	DefaultTimeOffset   = 2.0
	DefaultGravity      = 1.8
)

// Weights per engagement kind.
type Weights struct {
	Like   float64
	Repost float64
	Quote  float64
	Reply  float64
}

// Scorer computes a rank score for a snapshot at a given instant.
type Scorer interface {
	Score(s model.EngagementSnapshot, now time.Time) float64
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithWeights replaces the engagement weights. Negative weights are ignored.
func WithWeights(w Weights) Option {
	return func(c *Calculator) {
		if w.Like >= 0 && w.Repost >= 0 && w.Quote >= 0 && w.Reply >= 0 {
			c.weights = w
		}
	}
}

// WithTimeOffset sets the hours added to the age before decay.
func WithTimeOffset(hours float64) Option {
	return func(c *Calculator) {
		if hours > 0 {
			c.timeOffset = hours
		}
	}
}

// WithGravity sets the decay exponent.
func WithGravity(g float64) Option {
	return func(c *Calculator) {
		if g > 0 {
			c.gravity = g
		}
	}
}

// Calculator implements Scorer with the gravity formula.
type Calculator struct {
	weights    Weights
	timeOffset float64
	gravity    float64
}

// NewCalculator creates a calculator with the default tuning.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		weights: Weights{
			Like:   DefaultLikeWeight,
			Repost: DefaultRepostWeight,
			Quote:  DefaultQuoteWeight,
			Reply:  DefaultReplyWeight,
		},
		timeOffset: DefaultTimeOffset,
		gravity:    DefaultGravity,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Weighted returns the weighted engagement sum.
func (c *Calculator) Weighted(s model.EngagementSnapshot) float64 { //nolint:gocritic // hugeParam: snapshots are read-only values
	return float64(s.Likes)*c.weights.Like +
		float64(s.Reposts)*c.weights.Repost +
		float64(s.Quotes)*c.weights.Quote +
		float64(s.Replies)*c.weights.Reply
}

// Score computes the decayed score. A created_at in the future clamps the
// age to zero, which yields the highest score for that engagement.
func (c *Calculator) Score(s model.EngagementSnapshot, now time.Time) float64 { //nolint:gocritic // hugeParam: snapshots are read-only values
	weighted := c.Weighted(s)
	if weighted == 0 {
		return 0
	}
	ageHours := math.Max(0, now.Sub(s.CreatedAt).Hours())
	return weighted / math.Pow(ageHours+c.timeOffset, c.gravity)
}

// ScoreAll scores a batch, preserving order.
func ScoreAll(scorer Scorer, batch []model.EngagementSnapshot, now time.Time) []model.ScoredItem {
	items := make([]model.ScoredItem, len(batch))
	for i, s := range batch {
		items[i] = model.ScoredItem{
			TweetID:    s.TweetID,
			Score:      scorer.Score(s, now),
			Categories: s.Categories,
		}
	}
	return items
}
