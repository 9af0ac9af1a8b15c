package cache

import "github.com/layercache/layercache/types"

// Error taxonomy, shared with the storage package through types. Callers can
// match any module error with errors.Is(err, ErrCache) or narrow to one of
// the specific sentinels.
var (
	ErrCache             = types.ErrCache
	ErrConfiguration     = types.ErrConfiguration
	ErrBackendConnection = types.ErrBackendConnection
	ErrCacheClosed       = types.ErrCacheClosed
)
