package layercache

import (
	"github.com/layercache/layercache/cache"
	"github.com/layercache/layercache/types"
)

// Cache is an alias for cache.Cache, the contract implemented by each tier.
type Cache = cache.Cache

// MultiLevelCache is an alias for cache.MultiLevelCache.
type MultiLevelCache = cache.MultiLevelCache

// Logger is an alias for cache.Logger.
type Logger = cache.Logger

// Marshaller is an alias for cache.Marshaller.
type Marshaller = cache.Marshaller

// Engine is an alias for cache.Engine.
type Engine = cache.Engine

// EngineFactory is an alias for cache.EngineFactory.
type EngineFactory = cache.EngineFactory

// RistrettoConfig is an alias for cache.RistrettoConfig.
type RistrettoConfig = cache.RistrettoConfig

// InvalidationMessage is an alias for types.InvalidationMessage.
type InvalidationMessage = types.InvalidationMessage

// Action is an alias for types.Action.
type Action = types.Action

// Stats is an alias for types.Stats.
type Stats = types.Stats

// TierStats is an alias for types.TierStats.
type TierStats = types.TierStats

// Actions carried by invalidation messages.
const (
	ActionDelete = types.ActionDelete
	ActionClear  = types.ActionClear
)

// NoExpiration stores an entry without an expiry deadline.
const NoExpiration = cache.NoExpiration

// Engine names accepted by Config.LocalEngine.
const (
	EngineLRU       = cache.EngineLRU
	EngineRistretto = cache.EngineRistretto
	EngineSimple    = cache.EngineSimple
)
