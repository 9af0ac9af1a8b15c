package layercache

import "github.com/layercache/layercache/cache"

// ErrCache is the base error every failure surfaced by this module wraps.
// errors.Is(err, ErrCache) matches configuration and connection errors alike.
var ErrCache = cache.ErrCache

// ErrConfiguration reports invalid settings. It is returned synchronously
// from construction and never at runtime.
var ErrConfiguration = cache.ErrConfiguration

// ErrBackendConnection reports an unreachable shared backend in a context
// where reachability was required, i.e. degrade-on-unavailable is off.
var ErrBackendConnection = cache.ErrBackendConnection

// ErrCacheClosed is returned when operations are performed on a closed cache.
var ErrCacheClosed = cache.ErrCacheClosed
