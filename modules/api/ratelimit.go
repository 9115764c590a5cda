package api

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateResult is the outcome of one rate limit check.
type RateResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether one more request identified by key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (RateResult, error)
	Limit() int
}

// slidingWindow keeps one sorted-set member per accepted request, scored by
// its timestamp in milliseconds. It returns {allowed, remaining, retry_after_ms}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local seq_key = KEYS[2]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local retry = window
	if #oldest >= 2 then
		retry = tonumber(oldest[2]) + window - now
	end
	return {0, 0, retry}
end

local seq = redis.call('INCR', seq_key)
redis.call('ZADD', key, now, now .. ':' .. seq)
redis.call('PEXPIRE', key, window)
redis.call('PEXPIRE', seq_key, window)
return {1, limit - count - 1, 0}
`)

// RedisLimiter is a sliding window limiter shared by every instance using
// the same Redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter allows limit requests per window and key.
func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow records the request when it fits in the window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (RateResult, error) {
	redisKey := l.prefix + key
	res, err := slidingWindow.Run(ctx, l.client, []string{redisKey, redisKey + ":seq"},
		l.now().UnixMilli(),
		l.window.Milliseconds(),
		l.limit,
	).Int64Slice()
	if err != nil {
		return RateResult{}, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	if len(res) != 3 {
		return RateResult{}, fmt.Errorf("unexpected rate limit result length: %d", len(res))
	}

	return RateResult{
		Allowed:    res[0] == 1,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// Limit returns the number of requests allowed per window.
func (l *RedisLimiter) Limit() int {
	return l.limit
}

// Ping checks the Redis connection.
func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

// Throttle limits requests per client IP. Limiter failures let the request
// through.
func Throttle(limiter Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()
		if ip == "" {
			return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
				Error:   "forbidden",
				Message: "Unable to determine client IP address",
			})
		}

		result, err := limiter.Allow(c.UserContext(), ip)
		if err != nil {
			log.Printf("[api] Rate limiter unavailable: %v", err)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			seconds := int((result.RetryAfter + time.Second - 1) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Error:   "too_many_requests",
				Message: "Too many attempts, try again later",
			})
		}

		return c.Next()
	}
}
