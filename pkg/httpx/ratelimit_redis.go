package httpx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter shared by every gateway replica
// pointing at the same Redis. Burst is ignored; the window allows
// RequestsPerWindow requests.
type RedisLimiter struct {
	rdb    redis.UniversalClient
	prefix string
	limit  int64
	window time.Duration
}

// NewRedisLimiter limits keys under prefix.
func NewRedisLimiter(rdb redis.UniversalClient, prefix string, config RateLimitConfig) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  int64(config.RequestsPerWindow),
		window: config.Window,
	}
}

// RedisLimiterFactory returns limiters sharing rdb, namespaced by profile.
func RedisLimiterFactory(rdb redis.UniversalClient) LimiterFactory {
	return func(name string, config RateLimitConfig) Limiter {
		return NewRedisLimiter(rdb, "tenantgate:ratelimit:"+name, config)
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := time.Now()
	windowStart := now.Truncate(l.window)
	k := fmt.Sprintf("%s:%s:%d", l.prefix, key, windowStart.UnixMilli())

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.PExpire(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("redis limiter: %w", err)
	}

	if incr.Val() > l.limit {
		return false, windowStart.Add(l.window).Sub(now), nil
	}
	return true, 0, nil
}
