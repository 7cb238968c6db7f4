package ratelimiter

import (
	"context"
	"fmt"
	"time"
)

// Config defines the token bucket parameters shared by all stores.
type Config struct {
	// Capacity is the maximum number of tokens the bucket holds.
	Capacity int
	// RefillRate is how many tokens are added per refill interval.
	RefillRate int
	// RefillInterval is the period between refills.
	RefillInterval time.Duration
}

// Validate reports whether the configuration describes a usable bucket.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be > 0, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be > 0, got %d", ErrInvalidConfig, c.RefillRate)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("%w: refill interval must be > 0, got %v", ErrInvalidConfig, c.RefillInterval)
	}
	return nil
}

// Result describes the outcome of a rate limit check.
type Result struct {
	// Allowed reports whether the request may proceed.
	Allowed bool
	// Limit is the configured bucket capacity, echoed for limit headers.
	Limit int
	// Remaining is the number of tokens left after this check; negative
	// values indicate how far past the limit the key is.
	Remaining int
	// ResetAt is when the next refill happens.
	ResetAt time.Time
	// RetryAfter is how long a denied caller should wait, zero when Allowed.
	RetryAfter time.Duration
}

// Store persists token bucket state. Implementations must be safe for
// concurrent use; ConsumeTokens must atomically refill and consume.
type Store interface {
	// ConsumeTokens deducts tokens from the key's bucket after applying any
	// pending refill, returning the remaining count and the next refill
	// time. The count may go negative when the bucket is exhausted.
	ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error)

	// Reset drops the key's bucket entirely.
	Reset(ctx context.Context, key string) error
}

// RateLimiter checks keys against a token bucket configuration backed by a
// Store.
type RateLimiter struct {
	store  Store
	config Config
}

// New creates a rate limiter over the given store.
func New(store Store, config Config) (*RateLimiter, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &RateLimiter{store: store, config: config}, nil
}

// Allow consumes one token for the key.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (Result, error) {
	return rl.AllowN(ctx, key, 1)
}

// AllowN consumes n tokens for the key. The check fails open only at the
// caller's discretion: a store error returns a zero Result and the error.
func (rl *RateLimiter) AllowN(ctx context.Context, key string, n int) (Result, error) {
	if n <= 0 {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidTokenCount, n)
	}

	remaining, resetAt, err := rl.store.ConsumeTokens(ctx, key, n, rl.config)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	res := Result{
		Allowed:   remaining >= 0,
		Limit:     rl.config.Capacity,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	if !res.Allowed {
		res.RetryAfter = time.Until(resetAt)
		if res.RetryAfter < 0 {
			res.RetryAfter = 0
		}
	}
	return res, nil
}

// Reset clears the key's bucket.
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	return rl.store.Reset(ctx, key)
}

// Capacity returns the configured bucket capacity, used by middleware to
// populate limit headers.
func (rl *RateLimiter) Capacity() int {
	return rl.config.Capacity
}
