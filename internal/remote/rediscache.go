package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pulsedigest/core/internal/schema"
)

// cacheTTL matches the dashboard cache policy: short enough that evicted
// writes from other nodes converge quickly, long enough to absorb hot reads.
const cacheTTL = 15 * time.Minute

// CachedCollection decorates a Collection with a redis read-through cache.
// Cache failures are logged and ignored; the inner collection remains the
// source of truth.
type CachedCollection struct {
	inner  Collection
	redis  *redis.Client
	logger *zap.Logger
}

var _ Collection = (*CachedCollection)(nil)

// WithCache wraps the inner collection with a redis cache.
func WithCache(inner Collection, client *redis.Client, logger *zap.Logger) *CachedCollection {
	return &CachedCollection{inner: inner, redis: client, logger: logger}
}

// Create writes through and invalidates the cached entry.
func (c *CachedCollection) Create(ctx context.Context, entity string, rec schema.Record) error {
	if err := c.inner.Create(ctx, entity, rec); err != nil {
		return err
	}
	c.invalidate(ctx, entity, rec.ID())
	return nil
}

// Update writes through and invalidates the cached entry.
func (c *CachedCollection) Update(ctx context.Context, entity, id string, rec schema.Record) error {
	if err := c.inner.Update(ctx, entity, id, rec); err != nil {
		return err
	}
	c.invalidate(ctx, entity, id)
	return nil
}

// Delete writes through and invalidates the cached entry.
func (c *CachedCollection) Delete(ctx context.Context, entity, id string) error {
	if err := c.inner.Delete(ctx, entity, id); err != nil {
		return err
	}
	c.invalidate(ctx, entity, id)
	return nil
}

// FindByID tries the cache first and falls back to the inner collection,
// caching the result on a hit.
func (c *CachedCollection) FindByID(ctx context.Context, entity, id string) (schema.Record, error) {
	key := cacheKey(entity, id)
	if data, err := c.redis.Get(ctx, key).Result(); err == nil {
		var rec map[string]any
		if err := json.Unmarshal([]byte(data), &rec); err == nil {
			return schema.Record(rec), nil
		}
	}

	rec, err := c.inner.FindByID(ctx, entity, id)
	if err != nil || rec == nil {
		return rec, err
	}

	if data, err := json.Marshal(rec); err == nil {
		if err := c.redis.Set(ctx, key, data, cacheTTL).Err(); err != nil {
			c.logger.Warn("Failed to cache record",
				zap.String("entity", entity),
				zap.String("id", id),
				zap.Error(err))
		}
	}
	return rec, nil
}

// FindMany passes through; list results are not cached.
func (c *CachedCollection) FindMany(ctx context.Context, entity string, filter map[string]any) ([]schema.Record, error) {
	return c.inner.FindMany(ctx, entity, filter)
}

func (c *CachedCollection) invalidate(ctx context.Context, entity, id string) {
	if err := c.redis.Del(ctx, cacheKey(entity, id)).Err(); err != nil {
		c.logger.Warn("Failed to invalidate cached record",
			zap.String("entity", entity),
			zap.String("id", id),
			zap.Error(err))
	}
}

func cacheKey(entity, id string) string {
	return fmt.Sprintf("object:%s:%s", entity, id)
}
