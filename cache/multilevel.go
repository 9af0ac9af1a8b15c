package cache

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/layercache/layercache/storage"
	cachesync "github.com/layercache/layercache/sync"
	"github.com/layercache/layercache/types"
)

// MultiLevelCache orchestrates the local and shared tiers: reads go through
// the local tier into Redis, writes go to both tiers and then invalidate the
// key on every other instance. When Redis is unreachable at construction it
// degrades to local-only operation, and per-operation Redis failures never
// surface to callers.
type MultiLevelCache struct {
	cfg           Config
	logger        Logger
	instanceID    string
	local         *LocalCache
	shared        Cache
	synchronizer  Synchronizer
	reads         singleflight.Group
	loads         singleflight.Group
	invalidations int64
	degraded      bool
	closed        int32
}

// lookup carries a shared-tier result through a singleflight call.
type lookup struct {
	value any
	found bool
}

// New creates a multi-level cache from cfg. Construction fails only on
// invalid configuration, or on an unreachable backend when
// DegradeOnUnavailable is off; everything after that is fail-soft.
func New(cfg Config) (*MultiLevelCache, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mlc := &MultiLevelCache{
		cfg:        cfg,
		logger:     cfg.Logger,
		instanceID: cfg.InstanceID,
	}
	if mlc.instanceID == "" {
		mlc.instanceID = uuid.NewString()
	}

	if !cfg.Enabled {
		mlc.logger.Info("cache disabled, all operations are no-ops")
		return mlc, nil
	}

	if cfg.LocalEnabled {
		local, err := NewLocalCache(cfg)
		if err != nil {
			return nil, err
		}
		mlc.local = local
	}

	if cfg.SharedEnabled {
		store := storage.New(storage.Options{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			KeyPrefix:   cfg.KeyPrefix,
			DefaultTTL:  cfg.SharedTTL,
			DialTimeout: cfg.ConnectTimeout,
			Serializer:  cfg.Marshaller,
			Logger:      cfg.Logger,
		})

		if cfg.AutoDetect {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
			err := store.Ping(ctx)
			cancel()
			if err != nil {
				store.Close()
				if !cfg.DegradeOnUnavailable {
					if mlc.local != nil {
						mlc.local.Close()
					}
					return nil, fmt.Errorf("%w: ping %s: %v", ErrBackendConnection, cfg.RedisAddr, err)
				}
				mlc.degraded = true
				mlc.logger.Warn("redis unreachable, degrading to local-only mode",
					"addr", cfg.RedisAddr, "error", err)
			}
		}

		if !mlc.degraded {
			mlc.shared = store

			if cfg.SyncEnabled && mlc.local != nil {
				synchronizer := cachesync.NewPubSub(store.Client(), cfg.SyncChannel, mlc.instanceID, cfg.Logger)
				synchronizer.OnInvalidate(mlc.handleInvalidation)

				ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
				err := synchronizer.Subscribe(ctx)
				cancel()
				if err != nil {
					// Without the subscription this instance still serves
					// reads and writes, it just converges by TTL instead of
					// by invalidation.
					mlc.logger.Warn("invalidation subscribe failed, continuing without sync", "error", err)
				} else {
					mlc.synchronizer = synchronizer
				}
			}
		}
	}

	mlc.logger.Info("cache ready",
		"instance", mlc.instanceID,
		"local", mlc.local != nil,
		"shared", mlc.shared != nil,
		"sync", mlc.synchronizer != nil,
		"degraded", mlc.degraded)

	return mlc, nil
}

// Get retrieves a value by key, trying the local tier first and falling
// back to Redis. A shared-tier hit is written back to the local tier with
// the local default TTL. Concurrent misses on the same key share one Redis
// fetch.
func (mlc *MultiLevelCache) Get(ctx context.Context, key string) (any, bool) {
	if atomic.LoadInt32(&mlc.closed) != 0 || !mlc.cfg.Enabled {
		return nil, false
	}

	if mlc.local != nil {
		if value, found := mlc.local.Get(ctx, key); found {
			if mlc.cfg.DebugMode {
				mlc.logger.Debug("get: local hit", "key", key)
			}
			return value, true
		}
	}

	if mlc.shared == nil {
		return nil, false
	}

	result, _, _ := mlc.reads.Do(key, func() (any, error) {
		value, found := mlc.shared.Get(ctx, key)
		if found && mlc.local != nil {
			mlc.local.Set(ctx, key, value, 0)
		}
		return lookup{value: value, found: found}, nil
	})

	res := result.(lookup)
	if mlc.cfg.DebugMode {
		mlc.logger.Debug("get: shared lookup", "key", key, "found", res.found)
	}
	return res.value, res.found
}

// Set stores a value in both tiers and invalidates the key on other
// instances. A zero ttl applies each tier's default; NoExpiration stores
// without a deadline in both. A value the shared tier cannot encode is
// rejected without writing either tier.
func (mlc *MultiLevelCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !mlc.cfg.Enabled {
		return nil
	}
	if atomic.LoadInt32(&mlc.closed) != 0 {
		return ErrCacheClosed
	}

	// The shared tier writes first so a value its serializer rejects
	// never lands in the local tier.
	if mlc.shared != nil {
		if err := mlc.shared.Set(ctx, key, value, ttl); err != nil {
			return err
		}
	}
	if mlc.local != nil {
		if err := mlc.local.Set(ctx, key, value, ttl); err != nil {
			return err
		}
	}

	mlc.publish(ctx, ActionDelete, key)
	return nil
}

// Delete removes a key from both tiers and invalidates it on other
// instances. Absent keys are not an error.
func (mlc *MultiLevelCache) Delete(ctx context.Context, key string) error {
	if !mlc.cfg.Enabled {
		return nil
	}
	if atomic.LoadInt32(&mlc.closed) != 0 {
		return ErrCacheClosed
	}

	if mlc.local != nil {
		mlc.local.Delete(ctx, key)
	}
	if mlc.shared != nil {
		mlc.shared.Delete(ctx, key)
	}

	mlc.publish(ctx, ActionDelete, key)
	return nil
}

// Clear empties both tiers and tells other instances to drop their local
// tiers. The shared tier removes only keys under its prefix.
func (mlc *MultiLevelCache) Clear(ctx context.Context) error {
	if !mlc.cfg.Enabled {
		return nil
	}
	if atomic.LoadInt32(&mlc.closed) != 0 {
		return ErrCacheClosed
	}

	if mlc.local != nil {
		mlc.local.Clear(ctx)
	}
	if mlc.shared != nil {
		mlc.shared.Clear(ctx)
	}

	mlc.publish(ctx, ActionClear, "")
	return nil
}

// Exists reports whether key holds a value in either tier without counting
// as an access.
func (mlc *MultiLevelCache) Exists(ctx context.Context, key string) bool {
	if atomic.LoadInt32(&mlc.closed) != 0 || !mlc.cfg.Enabled {
		return false
	}

	if mlc.local != nil && mlc.local.Exists(ctx, key) {
		return true
	}
	return mlc.shared != nil && mlc.shared.Exists(ctx, key)
}

// GetOrLoad returns the cached value for key, or runs loader, stores its
// result with ttl and returns it. Concurrent loads of the same key are
// collapsed into one loader call. Loader errors are returned and nothing is
// cached for them.
func (mlc *MultiLevelCache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) (any, error)) (any, error) {
	if !mlc.cfg.Enabled {
		return loader(ctx)
	}
	if atomic.LoadInt32(&mlc.closed) != 0 {
		return nil, ErrCacheClosed
	}

	if value, found := mlc.Get(ctx, key); found {
		return value, nil
	}

	value, err, _ := mlc.loads.Do(key, func() (any, error) {
		// Another flight may have populated the key while this one queued.
		if value, found := mlc.Get(ctx, key); found {
			return value, nil
		}
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if err := mlc.Set(ctx, key, value, ttl); err != nil {
			mlc.logger.Warn("get-or-load: caching loaded value failed", "key", key, "error", err)
		}
		return value, nil
	})
	return value, err
}

// InvalidatePattern removes every local entry whose key contains pattern
// and returns how many were removed. It touches only this instance's local
// tier; engines that cannot enumerate keys remove nothing.
func (mlc *MultiLevelCache) InvalidatePattern(ctx context.Context, pattern string) int {
	if atomic.LoadInt32(&mlc.closed) != 0 || !mlc.cfg.Enabled || mlc.local == nil {
		return 0
	}

	keys, ok := mlc.local.Keys()
	if !ok {
		mlc.logger.Warn("pattern invalidation unsupported by local engine", "pattern", pattern)
		return 0
	}

	removed := 0
	for _, key := range keys {
		if strings.Contains(key, pattern) {
			mlc.local.Delete(ctx, key)
			removed++
		}
	}
	return removed
}

// GenerateKey builds the conventional "<namespace>:<name>:v<version>" cache
// key. Bumping version retires every key minted with the previous one.
func (mlc *MultiLevelCache) GenerateKey(name string, version int) string {
	return fmt.Sprintf("%s:%s:v%d", mlc.cfg.Namespace, name, version)
}

// InstanceID returns the identifier this instance stamps on its
// invalidation messages.
func (mlc *MultiLevelCache) InstanceID() string {
	return mlc.instanceID
}

// Degraded reports whether construction fell back to local-only mode.
func (mlc *MultiLevelCache) Degraded() bool {
	return mlc.degraded
}

// Stats returns a combined snapshot: one report per active tier, the number
// of invalidations applied from other instances, and the degraded flag.
func (mlc *MultiLevelCache) Stats(ctx context.Context) types.Stats {
	stats := types.Stats{
		Invalidations: atomic.LoadInt64(&mlc.invalidations),
		Degraded:      mlc.degraded,
	}
	if mlc.local != nil {
		local := mlc.local.Stats(ctx)
		stats.Local = &local
	}
	if mlc.shared != nil {
		shared := mlc.shared.Stats(ctx)
		stats.Shared = &shared
	}
	return stats
}

// Close stops the invalidation subscriber and closes both tiers. Safe to
// call more than once; never returns an error.
func (mlc *MultiLevelCache) Close() error {
	if !atomic.CompareAndSwapInt32(&mlc.closed, 0, 1) {
		return nil
	}

	if mlc.synchronizer != nil {
		if err := mlc.synchronizer.Close(); err != nil {
			mlc.logger.Warn("close: stopping synchronizer failed", "error", err)
		}
	}
	if mlc.shared != nil {
		mlc.shared.Close()
	}
	if mlc.local != nil {
		mlc.local.Close()
	}

	return nil
}

// publish sends an invalidation message, logging failures instead of
// surfacing them: a missed invalidation converges by TTL.
func (mlc *MultiLevelCache) publish(ctx context.Context, action Action, key string) {
	if mlc.synchronizer == nil {
		return
	}

	msg := InvalidationMessage{
		SourceID: mlc.instanceID,
		Action:   action,
		Key:      key,
	}
	if err := mlc.synchronizer.Publish(ctx, msg); err != nil {
		if mlc.cfg.OnError != nil {
			mlc.cfg.OnError(err)
		}
		mlc.logger.Warn("publish invalidation failed", "action", action, "key", key, "error", err)
	} else if mlc.cfg.DebugMode {
		mlc.logger.Debug("published invalidation", "action", action, "key", key)
	}
}

// handleInvalidation applies a message from another instance to the local
// tier. The shared tier is never touched and nothing is re-published, so
// messages cannot loop.
func (mlc *MultiLevelCache) handleInvalidation(msg InvalidationMessage) {
	if atomic.LoadInt32(&mlc.closed) != 0 || mlc.local == nil {
		return
	}
	ctx := context.Background()

	switch msg.Action {
	case ActionDelete:
		mlc.local.Delete(ctx, msg.Key)
		atomic.AddInt64(&mlc.invalidations, 1)
		if mlc.cfg.DebugMode {
			mlc.logger.Debug("applied delete invalidation", "key", msg.Key, "source", msg.SourceID)
		}

	case ActionClear:
		mlc.local.Clear(ctx)
		atomic.AddInt64(&mlc.invalidations, 1)
		if mlc.cfg.DebugMode {
			mlc.logger.Debug("applied clear invalidation", "source", msg.SourceID)
		}

	default:
		mlc.logger.Warn("ignoring invalidation with unknown action", "action", msg.Action, "source", msg.SourceID)
	}
}
