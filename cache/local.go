package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/layercache/layercache/types"
)

// LocalCache is the in-process tier. It delegates storage to an Engine and
// adds the contract semantics on top: default TTL resolution, hit/miss
// accounting and closed-state handling.
type LocalCache struct {
	engine     Engine
	capacity   int
	defaultTTL time.Duration
	hits       int64
	misses     int64
	closed     int32
}

// NewLocalCache builds the local tier from cfg, picking the engine named by
// LocalEngine unless a LocalFactory overrides it.
func NewLocalCache(cfg Config) (*LocalCache, error) {
	cfg = cfg.withDefaults()
	engine, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}

	return &LocalCache{
		engine:     engine,
		capacity:   cfg.LocalCapacity,
		defaultTTL: cfg.LocalTTL,
	}, nil
}

func newEngine(cfg Config) (Engine, error) {
	if cfg.LocalFactory != nil {
		engine, err := cfg.LocalFactory.Create()
		if err != nil {
			return nil, fmt.Errorf("%w: create local engine: %v", ErrConfiguration, err)
		}
		return engine, nil
	}

	switch cfg.LocalEngine {
	case EngineLRU:
		engine, err := NewLRUEngine(cfg.LocalCapacity, cfg.LocalTTI)
		if err != nil {
			return nil, fmt.Errorf("%w: create lru engine: %v", ErrConfiguration, err)
		}
		return engine, nil
	case EngineRistretto:
		if cfg.LocalTTI > 0 {
			cfg.Logger.Warn("idle expiry is not supported by the ristretto engine, ignoring", "tti", cfg.LocalTTI)
		}
		engine, err := NewRistrettoEngine(cfg.LocalCapacity, cfg.Ristretto)
		if err != nil {
			return nil, fmt.Errorf("%w: create ristretto engine: %v", ErrConfiguration, err)
		}
		return engine, nil
	case EngineSimple:
		return NewSimpleEngine(cfg.LocalCapacity, cfg.LocalTTI), nil
	default:
		return nil, fmt.Errorf("%w: unknown local engine %q", ErrConfiguration, cfg.LocalEngine)
	}
}

// Get retrieves a value by key. A stored nil returns (nil, true).
func (lc *LocalCache) Get(ctx context.Context, key string) (any, bool) {
	if atomic.LoadInt32(&lc.closed) == 1 {
		return nil, false
	}
	value, found := lc.engine.Get(key)
	if found {
		atomic.AddInt64(&lc.hits, 1)
	} else {
		atomic.AddInt64(&lc.misses, 1)
	}
	return value, found
}

// Set stores a value under key. A zero ttl applies the configured default,
// NoExpiration stores without a deadline.
func (lc *LocalCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if atomic.LoadInt32(&lc.closed) == 1 {
		return ErrCacheClosed
	}
	if ttl == 0 {
		ttl = lc.defaultTTL
	}
	lc.engine.Set(key, value, ttl)
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (lc *LocalCache) Delete(ctx context.Context, key string) error {
	if atomic.LoadInt32(&lc.closed) == 1 {
		return ErrCacheClosed
	}
	lc.engine.Delete(key)
	return nil
}

// Exists reports whether key holds a live value. It is not an access: the
// hit/miss counters, LRU order and idle deadline stay untouched.
func (lc *LocalCache) Exists(ctx context.Context, key string) bool {
	if atomic.LoadInt32(&lc.closed) == 1 {
		return false
	}
	return lc.engine.Contains(key)
}

// Clear removes every entry. The hit/miss counters are kept.
func (lc *LocalCache) Clear(ctx context.Context) error {
	if atomic.LoadInt32(&lc.closed) == 1 {
		return ErrCacheClosed
	}
	lc.engine.Purge()
	return nil
}

// Close releases the engine. Safe to call more than once.
func (lc *LocalCache) Close() error {
	if !atomic.CompareAndSwapInt32(&lc.closed, 0, 1) {
		return nil
	}
	lc.engine.Close()
	return nil
}

// Stats returns a snapshot of this tier.
func (lc *LocalCache) Stats(ctx context.Context) types.TierStats {
	return types.TierStats{
		Engine:    lc.engine.Kind(),
		Size:      int64(lc.engine.Len()),
		MaxSize:   int64(lc.capacity),
		Hits:      atomic.LoadInt64(&lc.hits),
		Misses:    atomic.LoadInt64(&lc.misses),
		Evictions: lc.engine.Evictions(),
	}
}

// Keys returns the resident keys when the engine can enumerate them. The
// second return is false for engines without enumeration.
func (lc *LocalCache) Keys() ([]string, bool) {
	if atomic.LoadInt32(&lc.closed) == 1 {
		return nil, false
	}
	lister, ok := lc.engine.(KeyLister)
	if !ok {
		return nil, false
	}
	return lister.Keys(), true
}
