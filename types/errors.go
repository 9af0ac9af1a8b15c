package types

import (
	"errors"
	"fmt"
)

// ErrCache is the root of the error taxonomy. Every error returned by this
// module matches it with errors.Is.
var ErrCache = errors.New("cache error")

// ErrConfiguration reports invalid configuration, detected synchronously at
// construction.
var ErrConfiguration = fmt.Errorf("%w: invalid configuration", ErrCache)

// ErrBackendConnection reports an unreachable shared backend at
// construction time when degradation is disabled.
var ErrBackendConnection = fmt.Errorf("%w: backend unreachable", ErrCache)

// ErrCacheClosed reports a mutating operation on a closed cache.
var ErrCacheClosed = fmt.Errorf("%w: cache is closed", ErrCache)
