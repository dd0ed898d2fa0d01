package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Orphaned blob bookkeeping. When a cross-store operation half-fails
// (blob written but row insert failed, or row deleted but blob delete
// failed), the object key is queued here and the gc sweeper retries
// the delete until it sticks.
const (
	orphanQueueKey    = "orphans:queue"
	orphanAttemptsKey = "orphans:attempts"
)

// EnqueueOrphan schedules a blob key for deletion at the given time.
func (c *Cache) EnqueueOrphan(ctx context.Context, key string, at time.Time) error {
	err := c.client.ZAdd(ctx, orphanQueueKey, redis.Z{
		Score:  float64(at.Unix()),
		Member: key,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue orphan: %w", err)
	}
	return nil
}

// DueOrphans returns up to limit blob keys whose retry time has passed.
func (c *Cache) DueOrphans(ctx context.Context, now time.Time, limit int64) ([]string, error) {
	keys, err := c.client.ZRangeByScore(ctx, orphanQueueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read orphan queue: %w", err)
	}
	return keys, nil
}

// RemoveOrphan drops a blob key from the queue after a successful delete.
func (c *Cache) RemoveOrphan(ctx context.Context, key string) error {
	pipe := c.client.Pipeline()
	pipe.ZRem(ctx, orphanQueueKey, key)
	pipe.HDel(ctx, orphanAttemptsKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove orphan: %w", err)
	}
	return nil
}

// BumpOrphanAttempts increments and returns the retry count for a key.
func (c *Cache) BumpOrphanAttempts(ctx context.Context, key string) (int, error) {
	n, err := c.client.HIncrBy(ctx, orphanAttemptsKey, key, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to bump orphan attempts: %w", err)
	}
	return int(n), nil
}
