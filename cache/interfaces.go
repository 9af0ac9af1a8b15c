package cache

import (
	"context"
	"time"

	"github.com/layercache/layercache/types"
)

// NoExpiration is the only TTL value that stores an entry without an expiry
// deadline. A zero (or unset) TTL always falls back to the tier's configured
// default; it never means "keep forever".
const NoExpiration time.Duration = -1

// Cache is the contract implemented by every tier. LocalCache and the Redis
// store expose the same operations with the same semantics, so the
// multi-level orchestrator can treat tiers uniformly and callers can swap a
// tier for a stub in tests.
type Cache interface {
	// Get retrieves a value by key. The boolean reports a hit; a stored nil
	// returns (nil, true), which is distinct from a miss.
	Get(ctx context.Context, key string) (any, bool)

	// Set stores a value under key. A zero ttl applies the tier's default;
	// NoExpiration stores the entry without a deadline.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key holds a value, including a stored nil.
	Exists(ctx context.Context, key string) bool

	// Clear removes every entry owned by this tier.
	Clear(ctx context.Context) error

	// Close releases the tier's resources.
	Close() error

	// Stats returns a best-effort snapshot for this tier.
	Stats(ctx context.Context) types.TierStats
}

// Logger defines the interface for logging inside the cache.
type Logger interface {
	// Debug logs a debug message.
	Debug(msg string, args ...any)

	// Info logs an info message.
	Info(msg string, args ...any)

	// Warn logs a warning message.
	Warn(msg string, args ...any)

	// Error logs an error message.
	Error(msg string, args ...any)
}

// Marshaller defines the byte encoding used by the shared tier. The default
// JSON marshaller encodes a nil value as "null", which keeps a stored nil
// distinguishable from an absent key.
type Marshaller interface {
	// Marshal serializes a value to bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes a value from bytes.
	Unmarshal(data []byte, v any) error
}

// Engine is the in-process store backing the local tier. Implementations must
// be safe for concurrent use and must never return a value past its deadline.
// The ttl passed to Set is already resolved by LocalCache: positive means
// expire after that duration, NoExpiration means no deadline.
type Engine interface {
	// Get returns the live value for key, refreshing its idle deadline.
	Get(key string) (any, bool)

	// Set stores value under key, evicting per the engine's policy when full.
	Set(key string, value any, ttl time.Duration)

	// Delete removes key if present.
	Delete(key string)

	// Contains reports whether key holds a live value without refreshing
	// recency or the idle deadline.
	Contains(key string) bool

	// Purge removes all entries.
	Purge()

	// Len returns the number of resident entries, counting entries that have
	// expired but not yet been observed.
	Len() int

	// Evictions returns the number of capacity evictions so far.
	Evictions() int64

	// Kind names the engine in stats reports.
	Kind() string

	// Close releases the engine's resources.
	Close()
}

// KeyLister is implemented by engines that can enumerate resident keys.
// Pattern invalidation is a no-op on engines that cannot.
type KeyLister interface {
	Keys() []string
}

// EngineFactory creates local engine instances. Supplying one on Config
// overrides the engine named by Config.LocalEngine.
type EngineFactory interface {
	// Create creates a new engine instance.
	Create() (Engine, error)
}

// Synchronizer defines the interface for propagating invalidations across
// instances.
type Synchronizer interface {
	// Subscribe starts listening for invalidation messages.
	Subscribe(ctx context.Context) error

	// Publish publishes an invalidation message.
	Publish(ctx context.Context, msg types.InvalidationMessage) error

	// OnInvalidate registers the callback invoked for messages from other
	// instances.
	OnInvalidate(callback func(msg types.InvalidationMessage))

	// Close stops the subscription and releases the connection.
	Close() error
}

// InvalidationMessage is an alias for types.InvalidationMessage so callers
// of this package rarely need to import types directly.
type InvalidationMessage = types.InvalidationMessage

// Action is an alias for types.Action.
type Action = types.Action

// Action constants understood by the invalidation channel.
const (
	ActionDelete = types.ActionDelete
	ActionClear  = types.ActionClear
)
