package memcache

import (
	"context"
	"time"
)

// GetOrCompute returns the cached value for key, or computes and caches it.
// Concurrent callers for the same key share one in-flight computation: the
// compute function runs exactly once, its result (or error) is delivered to
// every waiter, and the pending slot clears once it settles. Failed
// computations are not cached, so the next call retries instead of
// replaying the failure.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) (V, error), validators ...func(V) bool) (V, error) {
	if v, ok := c.Get(key, validators...); ok {
		return v, nil
	}

	out, err, _ := c.group.Do(key, func() (any, error) {
		// A joiner may land here after the leader already cached the
		// result; re-check before computing.
		if v, ok := c.Get(key, validators...); ok {
			return v, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return out.(V), nil
}
