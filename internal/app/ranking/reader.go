// Package ranking serves the read side of the category leaderboards.
package ranking

import (
	"context"
	"time"

	"github.com/okian/buzz/internal/adapters/hydration"
	"github.com/okian/buzz/internal/adapters/leaderboard"
	"github.com/okian/buzz/internal/domain/model"
	"github.com/okian/buzz/internal/domain/types"
	"github.com/okian/buzz/pkg/logger"
	"github.com/okian/buzz/pkg/metrics"
)

// Reader defaults.
const (
	DefaultInterestTopK = 5
	DefaultPerCategory  = 10
	DefaultLimit        = 20
	DefaultMaxLimit     = 100

	viewCategory = "category"
	viewFeed     = "feed"
)

// DefaultCategories back the feed of anonymous users and users without
// recorded interests.
var DefaultCategories = []string{"news", "sports", "technology", "entertainment", "politics"}

// InterestSource ranks a user's categories, strongest first.
type InterestSource interface {
	TopCategories(ctx context.Context, userID string, k int) ([]model.InterestCategory, error)
}

// Reader answers category page and feed queries. Store and hydration
// failures degrade to empty or partially hydrated results.
type Reader struct {
	store     leaderboard.Store
	content   hydration.Fetcher
	interests InterestSource
	log       logger.Logger

	defaults     []string
	topK         int
	perCategory  int
	defaultLimit int
	maxLimit     int
}

// New creates a reader over a leaderboard store and a content fetcher.
func New(store leaderboard.Store, content hydration.Fetcher, opts ...Option) *Reader {
	r := &Reader{
		store:        store,
		content:      content,
		defaults:     DefaultCategories,
		topK:         DefaultInterestTopK,
		perCategory:  DefaultPerCategory,
		defaultLimit: DefaultLimit,
		maxLimit:     DefaultMaxLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get().Named("ranking")
	}
	return r
}

// MaxLimit is the largest page size CategoryPage serves.
func (r *Reader) MaxLimit() int { return r.maxLimit }

// DefaultLimit is the page size used when none is given.
func (r *Reader) DefaultLimit() int { return r.defaultLimit }

// DefaultCategories returns the categories behind the fallback feed.
func (r *Reader) DefaultCategories() []string {
	return append([]string(nil), r.defaults...)
}

// CategoryPage returns one page of a category, best first. page starts at
// 1; out-of-range values are clamped. An unknown category is an empty page.
func (r *Reader) CategoryPage(ctx context.Context, categoryID string, page, limit int) types.CategoryPage {
	start := time.Now()
	if page < 1 {
		page = 1
	}
	switch {
	case limit < 1:
		limit = r.defaultLimit
	case limit > r.maxLimit:
		limit = r.maxLimit
	}
	out := types.CategoryPage{CategoryID: categoryID, Page: page, Limit: limit, Tweets: []types.Entry{}}

	offset := (page - 1) * limit
	members, err := r.store.Range(ctx, categoryID, offset, limit+1)
	if err != nil {
		r.log.Warn(ctx, "category read failed", logger.String("category_id", categoryID), logger.Error(err))
		metrics.RecordErrorByComponent("ranking", "range")
		members = nil
	}
	if len(members) > limit {
		out.HasMore = true
		members = members[:limit]
	}

	tweets := r.hydrate(ctx, ids(members))
	out.Tweets = entries(members, offset, tweets)

	metrics.RecordReaderRequest(viewCategory, msSince(start), len(out.Tweets) == 0)
	return out
}

// Feed builds the sectioned view for userID. An empty userID, or a user
// without interests, gets the default categories.
func (r *Reader) Feed(ctx context.Context, userID string) types.Feed {
	start := time.Now()
	feed := types.Feed{UserID: userID, Sections: []types.FeedSection{}}

	categories := r.interestsOf(ctx, userID)
	if len(categories) > 0 {
		feed.Personalized = true
	} else {
		categories = r.defaults
	}

	top, err := r.store.TopByCategories(ctx, categories, r.perCategory)
	if err != nil {
		r.log.Warn(ctx, "feed read failed", logger.String("user_id", userID), logger.Error(err))
		metrics.RecordErrorByComponent("ranking", "top")
		top = nil
	}

	seen := make(map[string]struct{})
	var all []string
	for _, c := range categories {
		for _, m := range top[c] {
			if _, ok := seen[m.TweetID]; ok {
				continue
			}
			seen[m.TweetID] = struct{}{}
			all = append(all, m.TweetID)
		}
	}
	tweets := r.hydrate(ctx, all)

	done := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		if _, dup := done[c]; dup {
			continue
		}
		done[c] = struct{}{}
		section := entries(top[c], 0, tweets)
		if len(section) == 0 {
			continue
		}
		feed.Sections = append(feed.Sections, types.FeedSection{CategoryID: c, Tweets: section})
	}

	metrics.RecordReaderRequest(viewFeed, msSince(start), len(feed.Sections) == 0)
	return feed
}

func (r *Reader) interestsOf(ctx context.Context, userID string) []string {
	if userID == "" || r.interests == nil {
		return nil
	}
	ranked, err := r.interests.TopCategories(ctx, userID, r.topK)
	if err != nil {
		r.log.Warn(ctx, "interest lookup failed", logger.String("user_id", userID), logger.Error(err))
		metrics.RecordErrorByComponent("ranking", "interests")
		return nil
	}
	out := make([]string, 0, len(ranked))
	for _, ic := range ranked {
		out = append(out, ic.CategoryID)
	}
	return out
}

// hydrate loads content for ids in one call. On failure tweets carry only
// their id.
func (r *Reader) hydrate(ctx context.Context, ids []string) map[string]model.Tweet {
	out := make(map[string]model.Tweet, len(ids))
	if len(ids) == 0 {
		return out
	}
	tweets, err := r.content.FetchByIDs(ctx, ids)
	if err != nil {
		r.log.Warn(ctx, "hydration failed, serving bare ids", logger.Int("ids", len(ids)), logger.Error(err))
		for _, id := range ids {
			out[id] = model.Tweet{ID: id}
		}
		return out
	}
	for _, t := range tweets {
		out[t.ID] = t
	}
	return out
}

// entries keeps rank order and drops members whose content is gone.
func entries(members []model.RankedMember, offset int, tweets map[string]model.Tweet) []types.Entry {
	out := make([]types.Entry, 0, len(members))
	for i, m := range members {
		t, ok := tweets[m.TweetID]
		if !ok {
			continue
		}
		out = append(out, types.Entry{Rank: offset + i + 1, Score: m.Score, Tweet: t})
	}
	return out
}

func ids(members []model.RankedMember) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.TweetID
	}
	return out
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
