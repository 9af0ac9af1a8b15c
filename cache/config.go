package cache

import (
	"fmt"
	"time"
)

// Engine names accepted by Config.LocalEngine.
const (
	EngineLRU       = "lru"
	EngineRistretto = "ristretto"
	EngineSimple    = "simple"
)

// Defaults applied by DefaultConfig and by New for zero-valued fields.
const (
	DefaultNamespace      = "app"
	DefaultLocalCapacity  = 10000
	DefaultLocalTTL       = 5 * time.Minute
	DefaultSharedTTL      = time.Hour
	DefaultRedisAddr      = "localhost:6379"
	DefaultKeyPrefix      = "cache:"
	DefaultSyncChannel    = "cache:invalidate"
	DefaultConnectTimeout = 5 * time.Second
)

// RistrettoConfig tunes the ristretto engine. Zero values are derived from
// Config.LocalCapacity when the engine is built.
type RistrettoConfig struct {
	// NumCounters is the number of keys to track frequency for.
	// Recommended: 10 * LocalCapacity.
	NumCounters int64

	// MaxCost is the capacity of the cache. Entries are stored with cost 1,
	// so this bounds the entry count.
	MaxCost int64

	// BufferItems is the number of keys per Get buffer. Recommended: 64.
	BufferItems int64

	// IgnoreInternalCost excludes ristretto's bookkeeping overhead from
	// entry cost, keeping MaxCost a pure entry count.
	IgnoreInternalCost bool
}

// Config configures a MultiLevelCache instance.
type Config struct {
	// Enabled toggles the whole cache. When false every operation is a
	// no-op and Get always misses.
	Enabled bool

	// Namespace is the application prefix used by GenerateKey.
	Namespace string

	// InstanceID uniquely identifies this instance on the invalidation
	// channel. If empty, a random ID is generated.
	InstanceID string

	// LocalEnabled toggles the in-process tier.
	LocalEnabled bool

	// LocalCapacity is the maximum number of entries in the local tier.
	// Zero applies DefaultLocalCapacity.
	LocalCapacity int

	// LocalTTL is the default lifetime of local entries. Zero applies
	// DefaultLocalTTL.
	LocalTTL time.Duration

	// LocalTTI is the idle timeout of local entries. Zero disables idle
	// expiry.
	LocalTTI time.Duration

	// LocalEngine names the engine backing the local tier: "lru",
	// "ristretto" or "simple".
	LocalEngine string

	// LocalFactory overrides LocalEngine with a custom engine factory.
	LocalFactory EngineFactory

	// Ristretto tunes the ristretto engine. Ignored by other engines.
	Ristretto RistrettoConfig

	// SharedEnabled toggles the Redis tier.
	SharedEnabled bool

	// SharedTTL is the default lifetime of Redis entries. Zero applies
	// DefaultSharedTTL.
	SharedTTL time.Duration

	// RedisAddr is the Redis server address (e.g. "localhost:6379").
	RedisAddr string

	// RedisPassword is the optional Redis password.
	RedisPassword string

	// RedisDB is the Redis database number.
	RedisDB int

	// KeyPrefix namespaces every Redis key written by this cache.
	KeyPrefix string

	// ConnectTimeout bounds the startup reachability probe and dial.
	ConnectTimeout time.Duration

	// SyncEnabled toggles cross-instance invalidation. Effective only when
	// both tiers are enabled.
	SyncEnabled bool

	// SyncChannel is the Redis pub/sub channel carrying invalidations.
	SyncChannel string

	// AutoDetect probes Redis reachability at construction. When false the
	// backend is assumed reachable and per-operation errors are absorbed.
	AutoDetect bool

	// DegradeOnUnavailable falls back to local-only mode when the probe
	// fails. When false, New returns ErrBackendConnection instead.
	DegradeOnUnavailable bool

	// Marshaller encodes values for the Redis tier. If nil, defaults to
	// JSON.
	Marshaller Marshaller

	// Logger receives operational logging. If nil, defaults to no-op.
	Logger Logger

	// DebugMode enables per-operation debug logging.
	DebugMode bool

	// OnError is called when an error occurs in background operations.
	OnError func(error)
}

// DefaultConfig returns the configuration used when callers supply nothing:
// both tiers on, sync on, degrade to local-only if Redis is unreachable.
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		Namespace:            DefaultNamespace,
		LocalEnabled:         true,
		LocalCapacity:        DefaultLocalCapacity,
		LocalTTL:             DefaultLocalTTL,
		LocalTTI:             0,
		LocalEngine:          EngineLRU,
		SharedEnabled:        true,
		SharedTTL:            DefaultSharedTTL,
		RedisAddr:            DefaultRedisAddr,
		KeyPrefix:            DefaultKeyPrefix,
		ConnectTimeout:       DefaultConnectTimeout,
		SyncEnabled:          true,
		SyncChannel:          DefaultSyncChannel,
		AutoDetect:           true,
		DegradeOnUnavailable: true,
	}
}

// Validate checks the configuration. Every violation is reported as
// ErrConfiguration.
func (c *Config) Validate() error {
	if c.LocalEnabled {
		if c.LocalCapacity <= 0 {
			return fmt.Errorf("%w: local capacity must be positive, got %d", ErrConfiguration, c.LocalCapacity)
		}
		if c.LocalTTL < 0 {
			return fmt.Errorf("%w: local TTL must not be negative, got %v", ErrConfiguration, c.LocalTTL)
		}
		if c.LocalTTI < 0 {
			return fmt.Errorf("%w: local TTI must not be negative, got %v", ErrConfiguration, c.LocalTTI)
		}
		if c.LocalFactory == nil {
			switch c.LocalEngine {
			case EngineLRU, EngineRistretto, EngineSimple:
			default:
				return fmt.Errorf("%w: unknown local engine %q", ErrConfiguration, c.LocalEngine)
			}
		}
	}
	if c.SharedEnabled {
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis address is required when the shared tier is enabled", ErrConfiguration)
		}
		if c.SharedTTL < 0 {
			return fmt.Errorf("%w: shared TTL must not be negative, got %v", ErrConfiguration, c.SharedTTL)
		}
		if c.ConnectTimeout < 0 {
			return fmt.Errorf("%w: connect timeout must not be negative, got %v", ErrConfiguration, c.ConnectTimeout)
		}
	}
	if c.SyncEnabled && c.SyncChannel == "" {
		return fmt.Errorf("%w: sync channel is required when sync is enabled", ErrConfiguration)
	}
	return nil
}

// withDefaults fills zero-valued fields so the rest of the package never
// re-checks them.
func (c Config) withDefaults() Config {
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.LocalCapacity == 0 {
		c.LocalCapacity = DefaultLocalCapacity
	}
	if c.LocalTTL == 0 {
		c.LocalTTL = DefaultLocalTTL
	}
	if c.SharedTTL == 0 {
		c.SharedTTL = DefaultSharedTTL
	}
	if c.RedisAddr == "" {
		c.RedisAddr = DefaultRedisAddr
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.SyncChannel == "" {
		c.SyncChannel = DefaultSyncChannel
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.LocalEngine == "" {
		c.LocalEngine = EngineLRU
	}
	if c.Marshaller == nil {
		c.Marshaller = JSONMarshaller{}
	}
	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}
	return c
}
