// Package ratelimit implements a fixed-window request limiter shared across
// instances through Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Limiter counts hits per key in windows of Window length.
type Limiter struct {
	redis    *redis.Client
	requests int
	window   time.Duration
	prefix   string
}

// New creates a Redis-backed limiter allowing requests hits per window.
func New(client *redis.Client, requests int, window time.Duration, prefix string) *Limiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &Limiter{
		redis:    client,
		requests: requests,
		window:   window,
		prefix:   prefix,
	}
}

func (l *Limiter) key(key string) string {
	return fmt.Sprintf("%s:%s", l.prefix, key)
}

// Limit is the number of hits allowed per window.
func (l *Limiter) Limit() int { return l.requests }

// Allow records a hit for key and reports whether it is within the limit.
// On Redis errors it returns true together with the error, so callers fail open.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := l.key(key)

	pipe := l.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}

	// The window starts with the first hit; later hits must not extend it.
	if ttl.Val() < 0 {
		if err := l.redis.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return true, fmt.Errorf("redis error: %w", err)
		}
	}

	return incr.Val() <= int64(l.requests), nil
}

// RetryAfter returns the time until the window for key resets.
func (l *Limiter) RetryAfter(ctx context.Context, key string) time.Duration {
	ttl, err := l.redis.TTL(ctx, l.key(key)).Result()
	if err != nil || ttl <= 0 {
		return l.window
	}
	return ttl
}

// Reset clears the counter for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.redis.Del(ctx, l.key(key)).Err()
}
