package middleware

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/vidtube/backend/internal/logging"
)

const redisLimiterPrefix = "vidtube:ratelimit"

// RedisRateLimiter enforces a fixed window limit shared by every replica.
// Redis failures fail open so an outage never locks users out of login.
type RedisRateLimiter struct {
	client redis.UniversalClient
	limit  int64
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisRateLimiter allows up to requests events per window for each key.
func NewRedisRateLimiter(client redis.UniversalClient, requests int, window time.Duration) *RedisRateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisRateLimiter{
		client: client,
		limit:  int64(requests),
		window: window,
		prefix: redisLimiterPrefix,
		now:    time.Now,
	}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) bool {
	if key == "" {
		key = "unknown"
	}

	bucket := l.now().UnixNano() / int64(l.window)
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket)

	var count *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		logging.FromContext(ctx).Warn("rate limiter unavailable, allowing request", "key", key, "error", err)
		return true
	}

	return count.Val() <= l.limit
}

// WithNowFunc allows tests to override the time source.
func (l *RedisRateLimiter) WithNowFunc(now func() time.Time) {
	l.now = now
}
