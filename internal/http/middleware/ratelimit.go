package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/princekumarofficial/winsome-service/internal/ratelimit"
	"github.com/princekumarofficial/winsome-service/internal/utils/response"
)

// Per-user, per-minute action limits.
const (
	PostsLimit    = 20
	VotesLimit    = 60
	CommentsLimit = 60
)

type RateLimitConfig struct {
	redisClient *redis.Client
	limiters    map[string]*ratelimit.TokenBucket
}

func NewRateLimitConfig(redisClient *redis.Client) *RateLimitConfig {
	config := &RateLimitConfig{
		redisClient: redisClient,
		limiters:    make(map[string]*ratelimit.TokenBucket),
	}

	config.limiters["posts"] = ratelimit.NewTokenBucket(redisClient, PostsLimit, PostsLimit)
	config.limiters["votes"] = ratelimit.NewTokenBucket(redisClient, VotesLimit, VotesLimit)
	config.limiters["comments"] = ratelimit.NewTokenBucket(redisClient, CommentsLimit, CommentsLimit)

	return config
}

func (rlc *RateLimitConfig) RateLimitMiddleware(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Assumes auth middleware ran first.
			username, ok := GetUsernameFromContext(r.Context())
			if !ok {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("user not authenticated")))
				return
			}

			limiter, exists := rlc.limiters[action]
			if !exists {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), username, action)
			if err != nil {
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(
					fmt.Errorf("rate limit check failed: %w", err)))
				return
			}

			remaining, _ := limiter.GetRemaining(r.Context(), username, action)
			w.Header().Set("X-RateLimit-Limit", limitForAction(action))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			w.Header().Set("X-RateLimit-Reset", "60")

			if !allowed {
				response.WriteJSON(w, http.StatusTooManyRequests, response.GeneralError(
					errors.New("rate limit exceeded")))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func limitForAction(action string) string {
	switch action {
	case "posts":
		return strconv.Itoa(PostsLimit)
	case "votes":
		return strconv.Itoa(VotesLimit)
	case "comments":
		return strconv.Itoa(CommentsLimit)
	default:
		return "100"
	}
}

// RateLimitedHandler wraps a handler with rate limiting for a specific action
func (rlc *RateLimitConfig) RateLimitedHandler(action string, handler http.HandlerFunc) http.Handler {
	return rlc.RateLimitMiddleware(action)(http.HandlerFunc(handler))
}
