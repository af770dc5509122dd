package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/carelink/carelink-be/internal/storage"
)

var (
	_ storage.CounterCache = (*CounterCache)(nil)
	_ storage.Incrementer  = (*CounterCache)(nil)
)

// CounterCache is a process-local expiring counter cache on go-cache.
// Expired entries are invisible to reads; RunJanitor evicts them.
type CounterCache struct {
	items *gocache.Cache
}

// NewCounterCache returns an empty cache. Entries stored without a ttl never
// expire.
func NewCounterCache() *CounterCache {
	return &CounterCache{items: gocache.New(gocache.NoExpiration, 0)}
}

func (c *CounterCache) Get(_ context.Context, key string) (int, error) {
	v, ok := c.items.Get(key)
	if !ok {
		return 0, nil
	}
	n, _ := v.(int)
	return n, nil
}

func (c *CounterCache) Set(_ context.Context, key string, value int, ttl time.Duration) error {
	c.items.Set(key, value, expiration(ttl))
	return nil
}

func (c *CounterCache) Delete(_ context.Context, key string) error {
	c.items.Delete(key)
	return nil
}

// Incr bumps key, creating it at 1 with ttl when absent or expired. An
// existing counter keeps its expiry.
func (c *CounterCache) Incr(_ context.Context, key string, ttl time.Duration) (int, error) {
	for {
		if n, err := c.items.IncrementInt(key, 1); err == nil {
			return n, nil
		}
		// Add fails when another caller created the key first; retry the
		// increment in that case.
		if err := c.items.Add(key, 1, expiration(ttl)); err == nil {
			return 1, nil
		}
	}
}

// Sweep drops expired entries and returns how many were removed.
func (c *CounterCache) Sweep() int {
	before := c.items.ItemCount()
	c.items.DeleteExpired()
	return before - c.items.ItemCount()
}

// RunJanitor sweeps every interval until ctx is done.
func (c *CounterCache) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Msg("swept expired attempt counters")
			}
		}
	}
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}
