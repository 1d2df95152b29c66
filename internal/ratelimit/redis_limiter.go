package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "oroma:ratelimit:"

var errMissingRedisClient = errors.New("ratelimit: redis client is required")

// RedisLimiter keeps one counter per key with the window as its TTL. INCR and
// the TTL assignment run in a transactional pipeline, so the threshold check
// never races a concurrent submission. Denied attempts are rolled back, so
// only accepted events consume the budget, matching SQLLimiter.
type RedisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter constructs a limiter backed by a shared Redis instance.
func NewRedisLimiter(client *redis.Client) (*RedisLimiter, error) {
	if client == nil {
		return nil, errMissingRedisClient
	}
	return &RedisLimiter{client: client}, nil
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string, rule Rule) (bool, error) {
	if rule.Limit <= 0 || rule.Window <= 0 {
		return true, nil
	}

	counterKey := redisKeyPrefix + key

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, counterKey)
	pipe.ExpireNX(ctx, counterKey, rule.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("ratelimit: redis pipeline: %w", err)
	}

	if count.Val() > int64(rule.Limit) {
		if err := l.client.Decr(ctx, counterKey).Err(); err != nil {
			return false, fmt.Errorf("ratelimit: redis decr: %w", err)
		}
		return false, nil
	}
	return true, nil
}
