package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "ratelimit:"

// Decision is the outcome of one rate limit check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter is a fixed-window request counter per key
type RateLimiter struct {
	client *Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter allows requestsPerMinute+burst requests per key each minute
func NewRateLimiter(client *Client, requestsPerMinute, burst int) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  requestsPerMinute + burst,
		window: time.Minute,
		now:    time.Now,
	}
}

// Allow counts a request against key
func (r *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	windowStart := r.now().Truncate(r.window)
	fullKey := windowKey(key, windowStart)

	pipe := r.client.rdb.Pipeline()
	incrCmd := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, r.window)

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return Decision{}, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	return decide(incrCmd.Val(), r.limit, windowStart.Add(r.window)), nil
}

// Reset clears the current window for key
func (r *RateLimiter) Reset(ctx context.Context, key string) error {
	return r.client.rdb.Del(ctx, windowKey(key, r.now().Truncate(r.window))).Err()
}

func windowKey(key string, windowStart time.Time) string {
	return fmt.Sprintf("%s%s:%d", rateLimitPrefix, key, windowStart.Unix())
}

func decide(count int64, limit int, resetAt time.Time) Decision {
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
