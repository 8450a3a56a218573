package identity

import (
	"context"
	"errors"
	"time"

	"job-notifier/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "user:email:"

// CachedResolver fronts another Resolver with Redis. Cache failures are
// logged and fall through to the underlying resolver. Misses are not cached.
type CachedResolver struct {
	next   Resolver
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedResolver(next Resolver, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedResolver {
	return &CachedResolver{next: next, redis: rdb, ttl: ttl, logger: log}
}

func (c *CachedResolver) ResolveEmail(ctx context.Context, userID string) (string, error) {
	cacheKey := cacheKeyPrefix + userID

	val, err := c.redis.Get(ctx, cacheKey).Result()
	switch {
	case err == nil && val != "":
		return val, nil
	case err != nil && !errors.Is(err, redis.Nil):
		c.logger.Warn("Email cache read failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
	}

	email, err := c.next.ResolveEmail(ctx, userID)
	if err != nil {
		return "", err
	}

	if err := c.redis.Set(ctx, cacheKey, email, c.ttl).Err(); err != nil {
		c.logger.Warn("Email cache write failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
	}
	return email, nil
}
