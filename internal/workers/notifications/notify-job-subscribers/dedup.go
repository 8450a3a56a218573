// internal/workers/notifications/notify-job-subscribers/dedup.go
package notifyjobsubscribers

import (
	"context"
	"time"

	"job-notifier/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// Deduper claims a (job, subscriber) pair before anything is created for it.
type Deduper interface {
	Claim(ctx context.Context, jobID, userID string) bool
	Release(ctx context.Context, jobID, userID string)
}

// RedisDeduper claims pairs with SETNX. A Redis failure lets the pair
// through, so an outage can cause duplicates but never silence.
type RedisDeduper struct {
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration, log logger.Logger) *RedisDeduper {
	return &RedisDeduper{redis: rdb, ttl: ttl, logger: log}
}

func dedupKey(jobID, userID string) string {
	return "notify:dedup:" + jobID + ":" + userID
}

func (d *RedisDeduper) Claim(ctx context.Context, jobID, userID string) bool {
	ok, err := d.redis.SetNX(ctx, dedupKey(jobID, userID), 1, d.ttl).Result()
	if err != nil {
		d.logger.Warn("dedup check failed, notifying anyway", map[string]interface{}{
			"jobId":  jobID,
			"userId": userID,
			"error":  err.Error(),
		})
		return true
	}
	return ok
}

func (d *RedisDeduper) Release(ctx context.Context, jobID, userID string) {
	if err := d.redis.Del(ctx, dedupKey(jobID, userID)).Err(); err != nil {
		d.logger.Warn("dedup release failed", map[string]interface{}{
			"jobId":  jobID,
			"userId": userID,
			"error":  err.Error(),
		})
	}
}
