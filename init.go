// Package layercache is a two-tier cache: a bounded in-process tier in
// front of a shared Redis tier, kept coherent across instances by pub/sub
// invalidation. Callers construct a cache here and use it through the
// operations on MultiLevelCache; the cache, storage and sync subpackages
// hold the tier implementations.
package layercache

import (
	"time"

	"github.com/layercache/layercache/cache"
)

// Config is an alias for cache.Config.
type Config = cache.Config

// New creates a multi-level cache instance.
// This is the root-level initialization function that allows users to import
// from the root package.
func New(cfg Config) (*cache.MultiLevelCache, error) {
	return cache.New(cfg)
}

// DefaultConfig returns the default cache configuration: both tiers enabled,
// invalidation on, degrade to local-only when Redis is unreachable.
func DefaultConfig() Config {
	return cache.DefaultConfig()
}

// Settings is the minimal surface FromSettings reads from an application
// settings object.
type Settings interface {
	// CacheTTL is the default lifetime for local entries.
	CacheTTL() time.Duration

	// CacheMaxSize is the local tier's entry capacity.
	CacheMaxSize() int
}

// RedisSettings is implemented by settings objects that also carry a Redis
// address.
type RedisSettings interface {
	RedisAddr() string
}

// RedisCredentials is implemented by settings objects that also carry a
// Redis password.
type RedisCredentials interface {
	RedisPassword() string
}

// RedisDatabase is implemented by settings objects that also carry a Redis
// database number.
type RedisDatabase interface {
	RedisDB() int
}

// FromSettings maps an application settings object onto a Config. The
// required fields land on the local tier's defaults; Redis parameters are
// picked up when the settings object implements the optional interfaces.
// Everything else keeps its DefaultConfig value.
func FromSettings(s Settings) Config {
	cfg := DefaultConfig()
	cfg.LocalTTL = s.CacheTTL()
	cfg.LocalCapacity = s.CacheMaxSize()

	if rs, ok := s.(RedisSettings); ok {
		cfg.RedisAddr = rs.RedisAddr()
	}
	if rc, ok := s.(RedisCredentials); ok {
		cfg.RedisPassword = rc.RedisPassword()
	}
	if rd, ok := s.(RedisDatabase); ok {
		cfg.RedisDB = rd.RedisDB()
	}
	return cfg
}
