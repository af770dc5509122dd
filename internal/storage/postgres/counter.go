package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/carelink/carelink-be/internal/storage"
)

var (
	_ storage.CounterCache = (*CounterCache)(nil)
	_ storage.Incrementer  = (*CounterCache)(nil)
)

// CounterCache keeps attempt counters in the attempt_counters table so every
// server process sharing the database sees the same counts. Expiry is judged
// against the database clock.
type CounterCache struct {
	pool *pgxpool.Pool
}

// Counters returns a counter cache sharing the store's pool.
func (s *Store) Counters() *CounterCache {
	return &CounterCache{pool: s.pool}
}

func (c *CounterCache) Get(ctx context.Context, key string) (int, error) {
	var value int
	err := c.pool.QueryRow(ctx, `
		SELECT value FROM attempt_counters
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > NOW())`, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get counter: %w", err)
	}
	return value, nil
}

func (c *CounterCache) Set(ctx context.Context, key string, value int, ttl time.Duration) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO attempt_counters (key, value, expires_at)
		VALUES ($1, $2, CASE WHEN $3::float8 > 0 THEN NOW() + make_interval(secs => $3::float8) END)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, ttl.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("set counter: %w", err)
	}
	return nil
}

func (c *CounterCache) Delete(ctx context.Context, key string) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM attempt_counters WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete counter: %w", err)
	}
	return nil
}

// Incr bumps the counter in one statement. An expired row restarts at 1 with
// a fresh expiry.
func (c *CounterCache) Incr(ctx context.Context, key string, ttl time.Duration) (int, error) {
	var value int
	err := c.pool.QueryRow(ctx, `
		INSERT INTO attempt_counters AS ac (key, value, expires_at)
		VALUES ($1, 1, CASE WHEN $2::float8 > 0 THEN NOW() + make_interval(secs => $2::float8) END)
		ON CONFLICT (key) DO UPDATE SET
			value = CASE WHEN ac.expires_at IS NOT NULL AND ac.expires_at <= NOW() THEN 1 ELSE ac.value + 1 END,
			expires_at = CASE WHEN ac.expires_at IS NOT NULL AND ac.expires_at <= NOW() THEN EXCLUDED.expires_at ELSE ac.expires_at END
		RETURNING value`,
		key, ttl.Seconds(),
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("incr counter: %w", err)
	}
	return value, nil
}

// Sweep deletes expired rows.
func (c *CounterCache) Sweep(ctx context.Context) (int64, error) {
	tag, err := c.pool.Exec(ctx, `DELETE FROM attempt_counters WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("sweep counters: %w", err)
	}
	return tag.RowsAffected(), nil
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
			n, err := c.Sweep(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("attempt counter sweep failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("removed", n).Msg("swept expired attempt counters")
			}
		}
	}
}
