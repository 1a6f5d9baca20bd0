package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts failed attempts per key in a fixed window.
type Limiter interface {
	Blocked(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
}

type noop struct{}

// Unlimited never blocks.
func Unlimited() Limiter { return noop{} }

func (noop) Blocked(context.Context, string) (bool, error) { return false, nil }
func (noop) RecordFailure(context.Context, string) error   { return nil }

type RedisLimiter struct {
	rdb         redis.UniversalClient
	maxAttempts int
	window      time.Duration
	prefix      string
}

func NewRedisLimiter(rdb redis.UniversalClient, maxAttempts int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		rdb:         rdb,
		maxAttempts: maxAttempts,
		window:      window,
		prefix:      "fileflow:verify:",
	}
}

// NewRedisLimiterFromURL parses a redis:// URL and pings the server.
func NewRedisLimiterFromURL(ctx context.Context, rawURL string, maxAttempts int, window time.Duration) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisLimiter(rdb, maxAttempts, window), nil
}

func (l *RedisLimiter) Blocked(ctx context.Context, key string) (bool, error) {
	val, err := l.rdb.Get(ctx, l.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return false, err
	}
	return n >= l.maxAttempts, nil
}

// recordFailure increments the counter and starts the expiry clock in one
// step. A counter left without a TTL gets one on its next failure.
var recordFailure = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// RecordFailure bumps the counter; the first failure in a window starts the
// expiry clock.
func (l *RedisLimiter) RecordFailure(ctx context.Context, key string) error {
	return recordFailure.Run(ctx, l.rdb, []string{l.prefix + key}, l.window.Milliseconds()).Err()
}
