package features

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/platinummonkey/gatehouse/pkg/observability"
)

const cacheName = "flags"

// RedisCache is an Evaluator that caches another Evaluator's results in
// Redis. Redis failures fall through to the wrapped evaluator.
type RedisCache struct {
	client  *redis.Client
	next    Evaluator
	ttl     time.Duration
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewRedisCache wraps next with a Redis cache
func NewRedisCache(client *redis.Client, next Evaluator, ttl time.Duration, logger *observability.Logger, metrics *observability.Metrics) *RedisCache {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &RedisCache{
		client:  client,
		next:    next,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

func cacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("flags:user:%s", userID)
}

// Flags returns cached flags or evaluates and caches them
func (c *RedisCache) Flags(ctx context.Context, userID uuid.UUID) ([]Flag, error) {
	key := cacheKey(userID)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var flags []Flag
		if err := json.Unmarshal(data, &flags); err == nil {
			c.metrics.RecordCacheLookup(cacheName, true)
			return flags, nil
		}
		// corrupt entry
		c.client.Del(ctx, key)
	case errors.Is(err, redis.Nil):
	default:
		c.logger.WithError(err).Debug("Feature flag cache read failed")
	}
	c.metrics.RecordCacheLookup(cacheName, false)

	flags, err := c.next.Flags(ctx, userID)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(flags); err == nil {
		if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.logger.WithError(err).Debug("Feature flag cache write failed")
		}
	}
	return flags, nil
}

// Invalidate drops the cached flags of a user
func (c *RedisCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return c.client.Del(ctx, cacheKey(userID)).Err()
}
