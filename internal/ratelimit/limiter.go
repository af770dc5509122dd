// Package ratelimit counts attempts at sensitive operations per client over a
// fixed window, on top of a shared expiring counter cache.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/carelink/carelink-be/internal/storage"
)

// Policy bounds one operation.
type Policy struct {
	Operation   string
	MaxAttempts int
	Window      time.Duration
}

// Default policies for the auth endpoints.
var (
	RegisterPolicy = Policy{Operation: "register", MaxAttempts: 5, Window: time.Hour}
	LoginPolicy    = Policy{Operation: "login", MaxAttempts: 10, Window: time.Hour}
)

// Key derives the counter key for a client, e.g. register_attempts_10.0.0.1.
func (p Policy) Key(client string) string {
	return fmt.Sprintf("%s_attempts_%s", p.Operation, client)
}

// Limiter applies policies against a counter cache. Counts are approximate
// when the cache cannot increment atomically.
type Limiter struct {
	cache storage.CounterCache
}

// New returns a limiter backed by cache.
func New(cache storage.CounterCache) *Limiter {
	return &Limiter{cache: cache}
}

// CheckAndIncrement rejects without counting when key is at or above max;
// otherwise it counts this attempt. The returned count is the value after the
// call.
func (l *Limiter) CheckAndIncrement(ctx context.Context, key string, max int, window time.Duration) (bool, int, error) {
	count, err := l.cache.Get(ctx, key)
	if err != nil {
		return false, 0, fmt.Errorf("read attempts: %w", err)
	}
	if count >= max {
		return false, count, nil
	}
	count, err = l.bump(ctx, key, count, window)
	if err != nil {
		return false, count, err
	}
	return true, count, nil
}

// Allowed reports whether key is still under max without counting.
func (l *Limiter) Allowed(ctx context.Context, key string, max int) (bool, int, error) {
	count, err := l.cache.Get(ctx, key)
	if err != nil {
		return false, 0, fmt.Errorf("read attempts: %w", err)
	}
	return count < max, count, nil
}

// Increment counts one attempt against key.
func (l *Limiter) Increment(ctx context.Context, key string, window time.Duration) (int, error) {
	if _, ok := l.cache.(storage.Incrementer); ok {
		return l.bump(ctx, key, 0, window)
	}
	count, err := l.cache.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("read attempts: %w", err)
	}
	return l.bump(ctx, key, count, window)
}

// Reset clears the counter for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	return nil
}

// bump increments key. seen is the value last read and is only used when the
// cache has no atomic increment.
func (l *Limiter) bump(ctx context.Context, key string, seen int, window time.Duration) (int, error) {
	if inc, ok := l.cache.(storage.Incrementer); ok {
		n, err := inc.Incr(ctx, key, window)
		if err != nil {
			return seen, fmt.Errorf("count attempt: %w", err)
		}
		return n, nil
	}
	if err := l.cache.Set(ctx, key, seen+1, window); err != nil {
		return seen, fmt.Errorf("count attempt: %w", err)
	}
	return seen + 1, nil
}
