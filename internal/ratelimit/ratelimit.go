// Package ratelimit is a fixed-window request counter backed by redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter counts requests per key and window in redis.
type RateLimiter struct {
	redis *redis.Client
	now   func() time.Time
}

// NewRateLimiter connects to redisURL and verifies the connection.
func NewRateLimiter(ctx context.Context, redisURL string) (*RateLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RateLimiter{redis: client, now: time.Now}, nil
}

// Allow records one request for key and reports whether it is within
// limit for the current window, along with the count so far.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	windowKey := WindowKey(key, rl.now(), window)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("counting request for %s: %w", key, err)
	}

	count := int(incr.Val())
	return count <= limit, count, nil
}

// Close releases the redis connection.
func (rl *RateLimiter) Close() error {
	return rl.redis.Close()
}

// WindowKey names the counter of key for the window containing at.
// Windows shorter than a second are rounded up to one second.
func WindowKey(key string, at time.Time, window time.Duration) string {
	secs := int64(window / time.Second)
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("%s:%d", key, at.Unix()/secs)
}
