package leaderboard

import (
	"context"
	"sync"
	"time"

	"github.com/okian/buzz/internal/domain/model"
	"github.com/okian/buzz/pkg/metrics"
)

// category is one in-process ranked set.
type category struct {
	root      *node
	scores    map[string]float64
	expiresAt time.Time // zero means no expiry
}

// MemoryStore is an in-process Store backed by one treap per category.
// It follows the Redis semantics: overwrite on write, cap and expire on
// trim, lazy expiry on access.
type MemoryStore struct {
	mu   sync.RWMutex
	sets map[string]*category
	opts options
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{sets: make(map[string]*category), opts: newOptions(opts)}
}

// UpdateScores implements Store.
func (s *MemoryStore) UpdateScores(_ context.Context, items []model.ScoredItem) ([]string, error) {
	start := time.Now()
	defer observe("update", start)

	writes, touched, skipped := plan(items, s.opts.minScoreThreshold)
	metrics.RecordLeaderboardWrites(len(writes), skipped)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range writes {
		c := s.live(w.category)
		if c == nil {
			c = &category{scores: make(map[string]float64)}
			s.sets[w.category] = c
		}
		if old, ok := c.scores[w.member]; ok {
			c.root = remove(c.root, w.member, old)
		}
		c.scores[w.member] = w.score
		c.root = insert(c.root, w.member, w.score)
	}
	return touched, nil
}

// Trim implements Store.
func (s *MemoryStore) Trim(_ context.Context, categoryIDs []string) error {
	start := time.Now()
	defer observe("trim", start)

	ids := dedupeIDs(categoryIDs)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		c := s.live(id)
		if c == nil {
			continue
		}
		keep, drop := split(c.root, s.opts.maxCategorySize)
		walk(drop, func(n *node) { delete(c.scores, n.id) })
		c.root = keep
		c.expiresAt = s.opts.now().Add(s.opts.ttl)
	}
	metrics.RecordLeaderboardTrims(len(ids))
	return nil
}

// Range implements Store.
func (s *MemoryStore) Range(_ context.Context, categoryID string, offset, count int) ([]model.RankedMember, error) {
	start := time.Now()
	defer observe("range", start)

	if offset < 0 || count < 1 {
		return nil, ErrInvalidRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.RankedMember, 0, count)
	if c := s.live(categoryID); c != nil {
		collect(c.root, offset, count, &out)
	}
	return out, nil
}

// TopByCategories implements Store.
func (s *MemoryStore) TopByCategories(_ context.Context, categoryIDs []string, n int) (map[string][]model.RankedMember, error) {
	start := time.Now()
	defer observe("top", start)

	if n < 1 {
		return nil, ErrInvalidRange
	}
	ids := dedupeIDs(categoryIDs)
	out := make(map[string][]model.RankedMember, len(ids))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		members := make([]model.RankedMember, 0, n)
		if c := s.live(id); c != nil {
			collect(c.root, 0, n, &members)
		}
		out[id] = members
	}
	return out, nil
}

// Size implements Store.
func (s *MemoryStore) Size(_ context.Context, categoryID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.live(categoryID); c != nil {
		return len(c.scores), nil
	}
	return 0, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// live returns the category unless it expired, dropping expired ones.
// Must be called with s.mu held for writing.
func (s *MemoryStore) live(id string) *category {
	c, ok := s.sets[id]
	if !ok {
		return nil
	}
	if !c.expiresAt.IsZero() && !s.opts.now().Before(c.expiresAt) {
		delete(s.sets, id)
		return nil
	}
	return c
}
