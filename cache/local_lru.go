package cache

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUEngineFactory creates LRU engine instances.
type LRUEngineFactory struct {
	capacity int
	tti      time.Duration
}

// NewLRUEngineFactory creates a new LRU engine factory.
func NewLRUEngineFactory(capacity int, tti time.Duration) EngineFactory {
	return &LRUEngineFactory{capacity: capacity, tti: tti}
}

// Create creates a new LRU engine instance.
func (lef *LRUEngineFactory) Create() (Engine, error) {
	return NewLRUEngine(lef.capacity, lef.tti)
}

// lruEntry pairs a value with its deadlines. value and expiresAt never change
// after insert; idleAt advances on reads and is accessed atomically so
// concurrent readers never tear it. Zero deadlines mean "none".
type lruEntry struct {
	value     any
	expiresAt time.Time
	idleAt    int64
}

func (e *lruEntry) expired(now time.Time) bool {
	if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
		return true
	}
	if idle := atomic.LoadInt64(&e.idleAt); idle != 0 && now.UnixNano() > idle {
		return true
	}
	return false
}

// LRUEngine bounds entries with strict least-recently-used eviction and lazy
// per-entry expiry, built on golang-lru.
type LRUEngine struct {
	cache     *lru.Cache[string, *lruEntry]
	tti       time.Duration
	evictions int64
}

// NewLRUEngine creates an LRU engine holding at most capacity entries. A
// positive tti additionally expires entries not read for that long.
func NewLRUEngine(capacity int, tti time.Duration) (*LRUEngine, error) {
	cache, err := lru.New[string, *lruEntry](capacity)
	if err != nil {
		return nil, err
	}

	return &LRUEngine{
		cache: cache,
		tti:   tti,
	}, nil
}

// Get returns the live value for key, marking it most recently used and
// pushing its idle deadline forward.
func (le *LRUEngine) Get(key string) (any, bool) {
	ent, found := le.cache.Get(key)
	if !found {
		return nil, false
	}
	now := time.Now()
	if ent.expired(now) {
		le.cache.Remove(key)
		return nil, false
	}
	if le.tti > 0 {
		atomic.StoreInt64(&ent.idleAt, now.Add(le.tti).UnixNano())
	}
	return ent.value, true
}

// Set stores value under key. The eviction forced by a full cache is counted;
// replacing an existing key is not an eviction.
func (le *LRUEngine) Set(key string, value any, ttl time.Duration) {
	now := time.Now()
	ent := &lruEntry{value: value}
	if ttl > 0 {
		ent.expiresAt = now.Add(ttl)
	}
	if le.tti > 0 {
		ent.idleAt = now.Add(le.tti).UnixNano()
	}
	if le.cache.Add(key, ent) {
		atomic.AddInt64(&le.evictions, 1)
	}
}

// Delete removes key if present.
func (le *LRUEngine) Delete(key string) {
	le.cache.Remove(key)
}

// Contains reports whether key holds a live value. Peek keeps the recency
// order untouched, and the idle deadline is deliberately not refreshed.
func (le *LRUEngine) Contains(key string) bool {
	ent, found := le.cache.Peek(key)
	if !found {
		return false
	}
	if ent.expired(time.Now()) {
		le.cache.Remove(key)
		return false
	}
	return true
}

// Purge removes all entries.
func (le *LRUEngine) Purge() {
	le.cache.Purge()
}

// Len returns the number of resident entries, counting expired entries not
// yet observed by a read.
func (le *LRUEngine) Len() int {
	return le.cache.Len()
}

// Evictions returns the number of capacity evictions so far.
func (le *LRUEngine) Evictions() int64 {
	return atomic.LoadInt64(&le.evictions)
}

// Keys returns resident keys oldest first. Expired entries may be included;
// callers deleting them is harmless.
func (le *LRUEngine) Keys() []string {
	return le.cache.Keys()
}

// Kind names the engine in stats reports.
func (le *LRUEngine) Kind() string {
	return EngineLRU
}

// Close releases the engine's resources.
func (le *LRUEngine) Close() {
	le.cache.Purge()
}
