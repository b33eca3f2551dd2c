package cache

import "errors"

// ErrCacheMiss is returned by Get when no live entry exists for the key.
// The cache never populates itself on a miss.
var ErrCacheMiss = errors.New("cache: key not in cache, check for existence first with Has")
