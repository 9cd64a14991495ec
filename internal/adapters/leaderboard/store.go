// Package leaderboard persists per-category ranked sets of tweet ids.
//
// Every category is one ranked set. A member holds exactly one score and
// writes overwrite it. Trim caps each touched set and refreshes its expiry
// so that abandoned categories clear themselves.
package leaderboard

import (
	"context"
	"time"

	"github.com/okian/buzz/internal/domain/model"
)

// Default leaderboard configuration constants.
const (
	DefaultKeyPrefix         = "explore:category:"
	DefaultMaxCategorySize   = 1000
	DefaultMinScoreThreshold = 0.01
	DefaultTTL               = 48 * time.Hour
)

// Store is the ranked-set cache used by the recalculation job and readers.
type Store interface {
	// UpdateScores writes score*percentage/100 for every (item, category)
	// pair at or above the threshold and returns the distinct categories
	// written, in first-seen order.
	UpdateScores(ctx context.Context, items []model.ScoredItem) ([]string, error)

	// Trim keeps the top members of each category and refreshes its expiry.
	Trim(ctx context.Context, categoryIDs []string) error

	// Range returns count members starting at offset, highest score first.
	Range(ctx context.Context, categoryID string, offset, count int) ([]model.RankedMember, error)

	// TopByCategories returns the top n members of each category in one
	// round trip. Empty categories map to an empty slice.
	TopByCategories(ctx context.Context, categoryIDs []string, n int) (map[string][]model.RankedMember, error)

	// Size returns the number of members in a category.
	Size(ctx context.Context, categoryID string) (int, error)
}

// settings are shared by every backend.
type settings struct {
	keyPrefix         string
	maxCategorySize   int
	minScoreThreshold float64
	ttl               time.Duration
}

func defaultSettings() settings {
	return settings{
		keyPrefix:         DefaultKeyPrefix,
		maxCategorySize:   DefaultMaxCategorySize,
		minScoreThreshold: DefaultMinScoreThreshold,
		ttl:               DefaultTTL,
	}
}

// Key returns the ranked-set key for a category.
func (s settings) Key(categoryID string) string {
	return s.keyPrefix + categoryID
}

// write is one member score destined for one category.
type write struct {
	category string
	member   string
	score    float64
}

// plan expands scored items into member writes, dropping pairs below the
// threshold.
func plan(items []model.ScoredItem, threshold float64) (writes []write, touched []string, skipped int) {
	seen := make(map[string]struct{})
	for _, item := range items {
		for _, c := range item.Categories {
			score := item.Score * c.Percentage / 100
			if score < threshold {
				skipped++
				continue
			}
			writes = append(writes, write{category: c.CategoryID, member: item.TweetID, score: score})
			if _, ok := seen[c.CategoryID]; !ok {
				seen[c.CategoryID] = struct{}{}
				touched = append(touched, c.CategoryID)
			}
		}
	}
	if touched == nil {
		touched = []string{}
	}
	return writes, touched, skipped
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
