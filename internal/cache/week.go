package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"billtracker/internal/bills"
	"billtracker/internal/core"
)

// WeekCache memoises week overviews by window start. Any committed store
// change purges it.
type WeekCache struct {
	lru *LRUCache[core.WeekOverview]

	// mu orders stores against purges: Purge holds it exclusively, a store
	// re-checks the generation under the shared lock.
	mu         sync.RWMutex
	generation uint64

	hits   atomic.Uint64
	misses atomic.Uint64
}

var _ bills.Notifier = (*WeekCache)(nil)

func NewWeekCache(maxWeeks int, ttl time.Duration) *WeekCache {
	return &WeekCache{lru: NewLRUCache[core.WeekOverview](maxWeeks, ttl)}
}

// Overview returns the cached overview for anchor's week, computing and
// storing it on a miss. A result computed across a purge is returned but
// not stored.
func (w *WeekCache) Overview(anchor core.Date, compute func(core.Date) core.WeekOverview) core.WeekOverview {
	key := core.WeekWindowFor(anchor).Start.String()
	if ov, ok := w.lru.Get(key); ok {
		w.hits.Add(1)
		return ov
	}
	w.misses.Add(1)

	w.mu.RLock()
	gen := w.generation
	w.mu.RUnlock()

	ov := compute(anchor)

	w.mu.RLock()
	if w.generation == gen {
		w.lru.Set(key, ov)
	}
	w.mu.RUnlock()
	return ov
}

// Purge drops all cached weeks.
func (w *WeekCache) Purge() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.generation++
	w.lru.Purge()
}

// NotifyChanged purges the cache.
func (w *WeekCache) NotifyChanged(_ context.Context, _ bills.Change) error {
	w.Purge()
	return nil
}

func (w *WeekCache) CleanExpired() int { return w.lru.CleanExpired() }

func (w *WeekCache) Size() int { return w.lru.Size() }

// Stats returns hit and miss counts since creation.
func (w *WeekCache) Stats() (hits, misses uint64) {
	return w.hits.Load(), w.misses.Load()
}
