package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedLimiter maintains one golang.org/x/time/rate limiter per key. It is
// a lighter alternative to the Store-backed limiter for in-process smoothing
// where burst behavior matters more than exact bucket accounting.
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyedEntry
	limit    rate.Limit
	burst    int
	maxIdle  time.Duration
}

type keyedEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyedLimiter creates a per-key limiter allowing limit events per
// second with the given burst. Entries idle longer than an hour are dropped
// lazily during Allow calls.
func NewKeyedLimiter(limit rate.Limit, burst int) *KeyedLimiter {
	return &KeyedLimiter{
		limiters: make(map[string]*keyedEntry),
		limit:    limit,
		burst:    burst,
		maxIdle:  time.Hour,
	}
}

// Allow reports whether the key may proceed now.
func (kl *KeyedLimiter) Allow(key string) bool {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	now := time.Now()
	entry, ok := kl.limiters[key]
	if !ok {
		// lastSeen must be set before the sweep below, or the fresh entry
		// would be evicted immediately.
		entry = &keyedEntry{limiter: rate.NewLimiter(kl.limit, kl.burst), lastSeen: now}
		kl.limiters[key] = entry

		// Piggyback stale eviction on inserts so the map stays bounded
		// without a background goroutine.
		for k, e := range kl.limiters {
			if now.Sub(e.lastSeen) > kl.maxIdle {
				delete(kl.limiters, k)
			}
		}
	}
	entry.lastSeen = now

	return entry.limiter.Allow()
}

// Len returns the current number of tracked keys.
func (kl *KeyedLimiter) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.limiters)
}
