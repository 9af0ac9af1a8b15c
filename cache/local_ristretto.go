package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// RistrettoEngineFactory creates ristretto engine instances.
type RistrettoEngineFactory struct {
	capacity int
	config   RistrettoConfig
}

// NewRistrettoEngineFactory creates a new ristretto engine factory. Zero
// fields in config are derived from capacity.
func NewRistrettoEngineFactory(capacity int, config RistrettoConfig) EngineFactory {
	return &RistrettoEngineFactory{capacity: capacity, config: config}
}

// Create creates a new ristretto engine instance.
func (ref *RistrettoEngineFactory) Create() (Engine, error) {
	return NewRistrettoEngine(ref.capacity, ref.config)
}

// RistrettoEngine backs the local tier with ristretto's TinyLFU admission
// policy. It trades the strict guarantees of the LRU engine for throughput:
// admission may drop writes under pressure, entry counts are approximate,
// keys cannot be enumerated, and idle expiry is not supported.
type RistrettoEngine struct {
	cache *ristretto.Cache
}

// NewRistrettoEngine creates a ristretto engine holding roughly capacity
// entries. Every entry is stored with cost 1 so MaxCost bounds the count.
func NewRistrettoEngine(capacity int, config RistrettoConfig) (*RistrettoEngine, error) {
	if config.NumCounters <= 0 {
		config.NumCounters = int64(capacity) * 10
	}
	if config.MaxCost <= 0 {
		config.MaxCost = int64(capacity)
	}
	if config.BufferItems <= 0 {
		config.BufferItems = 64
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        config.NumCounters,
		MaxCost:            config.MaxCost,
		BufferItems:        config.BufferItems,
		IgnoreInternalCost: true,
		Metrics:            true,
	})
	if err != nil {
		return nil, err
	}

	return &RistrettoEngine{cache: cache}, nil
}

// Get retrieves a value. Ristretto tracks access frequency internally; there
// is no idle deadline to refresh.
func (re *RistrettoEngine) Get(key string) (any, bool) {
	return re.cache.Get(key)
}

// Set stores value under key with cost 1. Writes are buffered, so Wait
// flushes them before returning to keep a set visible to the next get. The
// admission policy may still reject the entry under pressure.
func (re *RistrettoEngine) Set(key string, value any, ttl time.Duration) {
	if ttl > 0 {
		re.cache.SetWithTTL(key, value, 1, ttl)
	} else {
		re.cache.Set(key, value, 1)
	}
	re.cache.Wait()
}

// Delete removes key if present.
func (re *RistrettoEngine) Delete(key string) {
	re.cache.Del(key)
}

// Contains reports whether key holds a value. Ristretto has no side-effect
// free lookup, so this bumps the key's frequency counter.
func (re *RistrettoEngine) Contains(key string) bool {
	_, found := re.cache.Get(key)
	return found
}

// Purge removes all entries.
func (re *RistrettoEngine) Purge() {
	re.cache.Clear()
}

// Len approximates the resident entry count from admission metrics. Deleted
// keys are not tracked, so the value can overshoot after heavy deletion.
func (re *RistrettoEngine) Len() int {
	added := re.cache.Metrics.KeysAdded()
	evicted := re.cache.Metrics.KeysEvicted()
	if evicted >= added {
		return 0
	}
	return int(added - evicted)
}

// Evictions returns the number of policy evictions so far.
func (re *RistrettoEngine) Evictions() int64 {
	return int64(re.cache.Metrics.KeysEvicted())
}

// Kind names the engine in stats reports.
func (re *RistrettoEngine) Kind() string {
	return EngineRistretto
}

// Close releases the engine's resources.
func (re *RistrettoEngine) Close() {
	re.cache.Close()
}
