package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenBucket rate-limits one kind of action per user, with bucket state
// kept in Redis so limits survive restarts.
type TokenBucket struct {
	redis    *redis.Client
	capacity int64
	refill   int64 // tokens refilled per window
	window   time.Duration
}

func NewTokenBucket(redisClient *redis.Client, capacity, refillRate int64) *TokenBucket {
	return &TokenBucket{
		redis:    redisClient,
		capacity: capacity,
		refill:   refillRate,
		window:   time.Minute,
	}
}

// bucketScript refills and consumes atomically so concurrent handlers on
// different server threads cannot double-spend a token.
const bucketScript = `
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local window = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local time_passed = now - last_refill
	local tokens_to_add = math.floor((time_passed / window) * refill_rate)

	if tokens_to_add > 0 then
		tokens = math.min(capacity, tokens + tokens_to_add)
		last_refill = now
	end

	if tokens > 0 then
		tokens = tokens - 1
		redis.call('HMSET', key, 'tokens', tokens, 'last_refill', last_refill)
		redis.call('EXPIRE', key, window * 2)
		return 1
	else
		redis.call('HMSET', key, 'tokens', tokens, 'last_refill', last_refill)
		redis.call('EXPIRE', key, window * 2)
		return 0
	end
`

const remainingScript = `
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local window = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local time_passed = now - last_refill
	local tokens_to_add = math.floor((time_passed / window) * refill_rate)

	if tokens_to_add > 0 then
		tokens = math.min(capacity, tokens + tokens_to_add)
	end

	return tokens
`

// Allow consumes one token for the user's action if any are available.
func (tb *TokenBucket) Allow(ctx context.Context, username, action string) (bool, error) {
	key := fmt.Sprintf("rate_limit:%s:%s", username, action)

	now := time.Now().Unix()
	result, err := tb.redis.Eval(ctx, bucketScript, []string{key},
		tb.capacity, tb.refill, int64(tb.window.Seconds()), now).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	allowed, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected result type from rate limit script")
	}
	return allowed == 1, nil
}

// GetRemaining returns the number of remaining tokens without consuming one.
func (tb *TokenBucket) GetRemaining(ctx context.Context, username, action string) (int64, error) {
	key := fmt.Sprintf("rate_limit:%s:%s", username, action)

	now := time.Now().Unix()
	result, err := tb.redis.Eval(ctx, remainingScript, []string{key},
		tb.capacity, tb.refill, int64(tb.window.Seconds()), now).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get remaining tokens: %w", err)
	}

	remaining, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected result type from remaining tokens script")
	}
	return remaining, nil
}

// Reset clears the bucket for a specific user action.
func (tb *TokenBucket) Reset(ctx context.Context, username, action string) error {
	key := fmt.Sprintf("rate_limit:%s:%s", username, action)
	return tb.redis.Del(ctx, key).Err()
}
