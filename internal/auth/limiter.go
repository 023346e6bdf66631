package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter throttles repeated failed sign-ins per email.
type Limiter interface {
	Blocked(ctx context.Context, email string) (bool, error)
	Fail(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// RedisLimiter counts failures in a Redis key that expires after the lockout window.
type RedisLimiter struct {
	client      *redis.Client
	maxFailures int
	window      time.Duration
}

// NewRedisLimiter creates a limiter allowing maxFailures failures per window.
func NewRedisLimiter(client *redis.Client, maxFailures int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, maxFailures: maxFailures, window: window}
}

func failKey(email string) string {
	return "auth:failed:" + strings.ToLower(strings.TrimSpace(email))
}

// Blocked reports whether the email has reached the failure limit.
func (l *RedisLimiter) Blocked(ctx context.Context, email string) (bool, error) {
	n, err := l.client.Get(ctx, failKey(email)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get failures: %w", err)
	}
	return n >= l.maxFailures, nil
}

// Fail records one failed attempt. The window starts at the first failure.
func (l *RedisLimiter) Fail(ctx context.Context, email string) error {
	key := failKey(email)
	pipe := l.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return nil
}

// Reset clears the failure counter after a successful sign-in.
func (l *RedisLimiter) Reset(ctx context.Context, email string) error {
	return l.client.Del(ctx, failKey(email)).Err()
}
