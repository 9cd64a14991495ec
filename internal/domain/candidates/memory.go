package candidates

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/buzz/internal/domain/model"
)

// MemoryRepository is a Repository over an in-process slice. It backs the
// memory deployment profile and tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]model.EngagementSnapshot
}

// NewMemoryRepository creates a repository seeded with snapshots.
func NewMemoryRepository(seed ...model.EngagementSnapshot) *MemoryRepository {
	r := &MemoryRepository{items: make(map[string]model.EngagementSnapshot, len(seed))}
	r.Put(seed...)
	return r
}

// Put inserts or replaces snapshots by tweet id.
func (r *MemoryRepository) Put(snapshots ...model.EngagementSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range snapshots {
		r.items[s.TweetID] = s
	}
}

// Count implements Repository.
func (r *MemoryRepository) Count(_ context.Context, f Filter) (int, error) {
	return len(r.matching(f)), nil
}

// FetchPage implements Repository.
func (r *MemoryRepository) FetchPage(_ context.Context, f Filter, skip, take int) ([]model.EngagementSnapshot, error) {
	if skip < 0 || take < 1 {
		return nil, ErrInvalidPage
	}
	all := r.matching(f)
	if skip >= len(all) {
		return []model.EngagementSnapshot{}, nil
	}
	end := min(skip+take, len(all))
	return all[skip:end], nil
}

func (r *MemoryRepository) matching(f Filter) []model.EngagementSnapshot {
	r.mu.RLock()
	out := make([]model.EngagementSnapshot, 0, len(r.items))
	for _, s := range r.items {
		if f.Matches(s) {
			out = append(out, s)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].TweetID > out[j].TweetID
	})
	return out
}
