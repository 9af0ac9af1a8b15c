// Package storage provides the shared Redis tier. It implements the same
// contract as the local tier, with fail-soft semantics: once constructed, a
// broken backend degrades reads to misses and writes to logged no-ops
// instead of surfacing errors to callers.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layercache/layercache/types"
)

const (
	// scanBatch is the COUNT hint passed to SCAN while clearing.
	scanBatch = 100

	// delBatch caps the number of keys removed per DEL during a clear.
	delBatch = 128
)

// Logger matches the cache package's logger interface, redeclared here so
// either package's implementations satisfy it without an import cycle.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// Options configures a RedisCache.
type Options struct {
	// Addr is the Redis server address (e.g. "localhost:6379").
	Addr string

	// Password is the optional Redis password.
	Password string

	// DB is the Redis database number.
	DB int

	// KeyPrefix namespaces every key written by this cache. Clear removes
	// only keys under it.
	KeyPrefix string

	// DefaultTTL is applied when Set receives a zero ttl.
	DefaultTTL time.Duration

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration

	// Serializer encodes values. If nil, defaults to JSON.
	Serializer Serializer

	// Logger receives fail-soft warnings. If nil, defaults to no-op.
	Logger Logger
}

// RedisCache is the shared tier. All instances configured with the same
// prefix see the same data, which is what makes cross-instance reads
// consistent after an invalidation.
type RedisCache struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
	serializer Serializer
	logger     Logger
	hits       int64
	misses     int64
	closed     int32
}

// New creates a Redis-backed cache. The connection is not probed here;
// callers that need a reachability check use Ping.
func New(opts Options) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
	})
	return NewWithClient(client, opts)
}

// NewWithClient wraps an existing client. The cache takes ownership and
// closes it on Close.
func NewWithClient(client *redis.Client, opts Options) *RedisCache {
	if opts.Serializer == nil {
		opts.Serializer = NewJSONSerializer()
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	return &RedisCache{
		client:     client,
		prefix:     opts.KeyPrefix,
		defaultTTL: opts.DefaultTTL,
		serializer: opts.Serializer,
		logger:     opts.Logger,
	}
}

// Ping verifies the backend is reachable. Deadlines come from ctx.
func (rc *RedisCache) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Client returns the underlying Redis client, shared with the invalidation
// channel so one connection pool serves both.
func (rc *RedisCache) Client() *redis.Client {
	return rc.client
}

// Get retrieves a value by key. Backend and decode failures degrade to a
// miss. A stored nil decodes to (nil, true).
func (rc *RedisCache) Get(ctx context.Context, key string) (any, bool) {
	if atomic.LoadInt32(&rc.closed) == 1 {
		return nil, false
	}
	data, err := rc.client.Get(ctx, rc.prefixed(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			rc.logger.Warn("redis get failed", "key", key, "error", err)
		}
		atomic.AddInt64(&rc.misses, 1)
		return nil, false
	}

	var value any
	if err := rc.serializer.Unmarshal(data, &value); err != nil {
		rc.logger.Warn("redis payload decode failed", "key", key, "error", err)
		atomic.AddInt64(&rc.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&rc.hits, 1)
	return value, true
}

// Set stores a value under key. A zero ttl applies the default, a negative
// ttl stores without expiry. Backend failures are logged and absorbed; only
// an unencodable value is an error.
func (rc *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if atomic.LoadInt32(&rc.closed) == 1 {
		return types.ErrCacheClosed
	}
	data, err := rc.serializer.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode value for key %q: %v", types.ErrCache, key, err)
	}
	if ttl == 0 {
		ttl = rc.defaultTTL
	}
	var expiration time.Duration
	if ttl > 0 {
		expiration = ttl
	}
	if err := rc.client.Set(ctx, rc.prefixed(key), data, expiration).Err(); err != nil {
		rc.logger.Warn("redis set failed", "key", key, "error", err)
	}
	return nil
}

// Delete removes a key. Absent keys and backend failures are not errors.
func (rc *RedisCache) Delete(ctx context.Context, key string) error {
	if atomic.LoadInt32(&rc.closed) == 1 {
		return types.ErrCacheClosed
	}
	if err := rc.client.Del(ctx, rc.prefixed(key)).Err(); err != nil {
		rc.logger.Warn("redis delete failed", "key", key, "error", err)
	}
	return nil
}

// Exists reports whether key holds a value. Backend failures degrade to
// false.
func (rc *RedisCache) Exists(ctx context.Context, key string) bool {
	if atomic.LoadInt32(&rc.closed) == 1 {
		return false
	}
	n, err := rc.client.Exists(ctx, rc.prefixed(key)).Result()
	if err != nil {
		rc.logger.Warn("redis exists failed", "key", key, "error", err)
		return false
	}
	return n > 0
}

// Clear removes every key under the configured prefix, scanning in batches
// so unrelated data in the same database is never touched.
func (rc *RedisCache) Clear(ctx context.Context) error {
	if atomic.LoadInt32(&rc.closed) == 1 {
		return types.ErrCacheClosed
	}

	iter := rc.client.Scan(ctx, 0, rc.prefix+"*", scanBatch).Iterator()
	keys := make([]string, 0, delBatch)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= delBatch {
			if err := rc.client.Del(ctx, keys...).Err(); err != nil {
				rc.logger.Warn("redis clear failed", "error", err)
				return nil
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		rc.logger.Warn("redis clear scan failed", "error", err)
		return nil
	}
	if len(keys) > 0 {
		if err := rc.client.Del(ctx, keys...).Err(); err != nil {
			rc.logger.Warn("redis clear failed", "error", err)
		}
	}
	return nil
}

// Close releases the client. Safe to call more than once; close failures
// are logged, never returned.
func (rc *RedisCache) Close() error {
	if !atomic.CompareAndSwapInt32(&rc.closed, 0, 1) {
		return nil
	}
	if err := rc.client.Close(); err != nil {
		rc.logger.Warn("redis close failed", "error", err)
	}
	return nil
}

// Stats returns a best-effort snapshot. Size covers the whole Redis
// database, not only this prefix; server fields are blank when INFO is
// unavailable.
func (rc *RedisCache) Stats(ctx context.Context) types.TierStats {
	stats := types.TierStats{
		Engine: "redis",
		Hits:   atomic.LoadInt64(&rc.hits),
		Misses: atomic.LoadInt64(&rc.misses),
	}
	if atomic.LoadInt32(&rc.closed) == 1 {
		return stats
	}

	if size, err := rc.client.DBSize(ctx).Result(); err == nil {
		stats.Size = size
	} else {
		rc.logger.Debug("redis dbsize failed", "error", err)
	}

	info, err := rc.client.Info(ctx, "memory", "clients").Result()
	if err != nil {
		rc.logger.Debug("redis info failed", "error", err)
		return stats
	}
	stats.UsedMemory = infoField(info, "used_memory_human")
	if clients := infoField(info, "connected_clients"); clients != "" {
		if n, err := strconv.ParseInt(clients, 10, 64); err == nil {
			stats.ConnectedClients = n
		}
	}
	return stats
}

func (rc *RedisCache) prefixed(key string) string {
	return rc.prefix + key
}

// infoField extracts a single "field:value" line from an INFO reply.
func infoField(info, field string) string {
	for _, line := range strings.Split(info, "\n") {
		if rest, ok := strings.CutPrefix(line, field+":"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
