// Package dedupe remembers idempotency keys for a bounded window.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Default dedupe configuration constants.
const (
	defaultMaxSize = 10_000
)

// Deduper records keys so that repeated requests are recognised.
type Deduper interface {
	// SeenAndRecord atomically checks whether key was seen and records it
	// if not. Returns true if key was already present.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets a key, e.g. when the work it guarded could not be
	// accepted and the caller may retry.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key      string
	recorded time.Time
}

// inMemoryDeduper keeps keys in insertion order. When full, the oldest key
// is evicted. Keys older than ttl count as unseen.
type inMemoryDeduper struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List // front = oldest
	maxSize int        // <= 0 means unbounded
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		index:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: defaultMaxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.expire(now)

	if _, ok := d.index[key]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.drop(d.order.Front())
	}
	d.index[key] = d.order.PushBack(entry{key: key, recorded: now})
	return false
}

// Unrecord implements Deduper.
func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.index[key]; ok {
		d.drop(el)
	}
}

// Size implements Deduper.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expire(d.now())
	return int64(d.order.Len())
}

// expire drops keys recorded before now-ttl. Must be called with d.mu held.
func (d *inMemoryDeduper) expire(now time.Time) {
	if d.ttl <= 0 {
		return
	}
	cutoff := now.Add(-d.ttl)
	for el := d.order.Front(); el != nil; el = d.order.Front() {
		if el.Value.(entry).recorded.After(cutoff) {
			return
		}
		d.drop(el)
	}
}

func (d *inMemoryDeduper) drop(el *list.Element) {
	delete(d.index, el.Value.(entry).key)
	d.order.Remove(el)
}
