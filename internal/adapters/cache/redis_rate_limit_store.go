package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimitStore counts verification attempts in fixed window buckets.
// The bucket key embeds the window start, so every instance sharing the Redis
// node increments the same counter for the same window.
type RedisRateLimitStore struct {
	client *redis.Client
}

func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client}
}

func (s *RedisRateLimitStore) Incr(ctx context.Context, key string, window time.Duration, now time.Time) (int64, error) {
	bucket := now.UTC().Truncate(window).Unix()
	redisKey := fmt.Sprintf("redemption:rl:%s:%d:%d", key, int64(window.Seconds()), bucket)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	// TTL slightly beyond the window so a bucket read at the boundary still resolves.
	pipe.Expire(ctx, redisKey, window+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rate limit incr: %w", err)
	}
	return incr.Val(), nil
}
