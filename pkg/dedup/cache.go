// Copyright 2025 Ledgerflow Authors
//
// Package dedup is the deduplication cache (spec.md §4.3, component C3):
// a time-windowed set of transaction ids, safe for concurrent Add calls
// from pre-handle workers racing the handle thread (spec.md §5),
// grounded on the teacher's mutex-guarded validator state idiom.
package dedup

import (
	"sync"
	"time"

	"github.com/ledgerflow/txengine/pkg/types"
)

type entry struct {
	validStart time.Time
}

// Cache is a time-windowed, concurrency-safe set of transaction ids.
// Entries whose validStart+maxValidDuration is before now are dropped
// only when Purge is called; Add and Contains do not purge, so Contains
// keeps reporting an expired id until the next Purge.
type Cache struct {
	mu               sync.Mutex
	maxValidDuration time.Duration
	entries          map[string]entry
}

func New(maxValidDuration time.Duration) *Cache {
	return &Cache{
		maxValidDuration: maxValidDuration,
		entries:          make(map[string]entry),
	}
}

// Add is always successful and idempotent: a repeated id is a no-op.
func (c *Cache) Add(id types.TransactionID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := id.Key()
	if _, exists := c.entries[key]; exists {
		return
	}
	c.entries[key] = entry{validStart: id.ValidStart}
}

// Contains reports whether id has already been seen and not yet purged.
func (c *Cache) Contains(id types.TransactionID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id.Key()]
	return ok
}

// Purge drops every entry whose valid_start+max_valid_duration is before
// nowWall. Callers (the demo node runs it on a one-minute ticker)
// invoke this periodically rather than on every Add/Contains, so its
// cost doesn't sit on the hot path.
func (c *Cache) Purge(nowWall time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	purged := 0
	for key, e := range c.entries {
		if e.validStart.Add(c.maxValidDuration).Before(nowWall) {
			delete(c.entries, key)
			purged++
		}
	}
	return purged
}

// Len reports the current entry count, mostly useful for tests and
// diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
