// Package ratelimiter provides token bucket rate limiting with pluggable
// storage backends.
//
// The RateLimiter applies one Config to any number of keys; the Store holds
// per-key bucket state. MemoryStore keeps buckets in process memory with
// periodic cleanup of stale keys; RedisStore keeps them in Redis so limits
// hold across instances, with all bucket math in a single Lua script.
//
//	store := ratelimiter.NewMemoryStore()
//	limiter, err := ratelimiter.New(store, ratelimiter.Config{
//		Capacity:       100,
//		RefillRate:     10,
//		RefillInterval: time.Second,
//	})
//
//	res, err := limiter.Allow(ctx, clientIP)
//	if err != nil {
//		// store failure; decide whether to fail open or closed
//	}
//	if !res.Allowed {
//		// reject with res.RetryAfter
//	}
//
// KeyedLimiter is a lighter per-key alternative built on
// golang.org/x/time/rate for in-process burst smoothing.
package ratelimiter
