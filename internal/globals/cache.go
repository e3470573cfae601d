// Package globals serves project-wide global context with an explicit
// cache: callers get Refresh and Invalidate operations instead of
// implicit lazy caching tied to client lifetime.
package globals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "global_context:"

type Cache struct {
	db    *pgxpool.Pool
	redis *redis.Client
	ttl   time.Duration
}

// NewCache builds a cache over the projects table. A nil redis client
// degrades to uncached reads.
func NewCache(db *pgxpool.Pool, rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{db: db, redis: rdb, ttl: ttl}
}

// Get returns the project's global context, preferring the cache.
func (c *Cache) Get(ctx context.Context, projectID uuid.UUID) (map[string]any, error) {
	if c.redis != nil {
		val, err := c.redis.Get(ctx, keyPrefix+projectID.String()).Result()
		if err == nil {
			var globals map[string]any
			if jsonErr := json.Unmarshal([]byte(val), &globals); jsonErr == nil {
				return globals, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			slog.Warn("global context cache read failed", "project_id", projectID, "error", err)
		}
	}
	return c.Refresh(ctx, projectID)
}

// Refresh loads from the store and repopulates the cache.
func (c *Cache) Refresh(ctx context.Context, projectID uuid.UUID) (map[string]any, error) {
	var raw json.RawMessage
	err := c.db.QueryRow(ctx,
		`SELECT global_context FROM projects WHERE id = $1`, projectID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("project %s not found", projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("load global context: %w", err)
	}

	globals := map[string]any{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &globals); err != nil {
			return nil, fmt.Errorf("parse global context: %w", err)
		}
	}

	if c.redis != nil {
		data, _ := json.Marshal(globals)
		if err := c.redis.Set(ctx, keyPrefix+projectID.String(), data, c.ttl).Err(); err != nil {
			slog.Warn("global context cache write failed", "project_id", projectID, "error", err)
		}
	}
	return globals, nil
}

// Invalidate drops the cached entry; the next Get reloads from the store.
func (c *Cache) Invalidate(ctx context.Context, projectID uuid.UUID) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, keyPrefix+projectID.String()).Err()
}
