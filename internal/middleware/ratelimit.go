package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/conduitchat/conduit/internal/config"
	apierrors "github.com/conduitchat/conduit/internal/errors"
	"github.com/conduitchat/conduit/internal/monitoring"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RateLimiter implements sliding window rate limiting using Redis
type RateLimiter struct {
	client *redis.Client
	config *config.RateLimitConfig
}

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	Limit      int
	RetryAfter time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *redis.Client, cfg *config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		client: client,
		config: cfg,
	}
}

// Check checks if a request from the given client is allowed.
// Uses a sliding window over a Redis sorted set; on Redis errors the
// request is allowed (fail open).
func (r *RateLimiter) Check(ctx context.Context, clientKey string) (*RateLimitResult, error) {
	limit := r.config.RequestLimit
	windowSeconds := r.config.WindowSeconds
	if windowSeconds <= 0 {
		windowSeconds = 60
	}

	now := time.Now()
	windowDuration := time.Duration(windowSeconds) * time.Second
	windowStart := now.Add(-windowDuration)

	key := fmt.Sprintf("ratelimit:sliding:%s", clientKey)

	// Score = timestamp, member = unique request ID
	pipe := r.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("client", clientKey).Msg("Failed to check rate limit")
		return &RateLimitResult{Allowed: true, Remaining: int64(limit), Limit: limit}, nil
	}

	currentCount := countCmd.Val()
	result := &RateLimitResult{Limit: limit}

	if currentCount >= int64(limit) {
		result.Allowed = false
		result.Remaining = 0

		oldest, err := r.client.ZRangeWithScores(ctx, key, 0, 0).Result()
		if err == nil && len(oldest) > 0 {
			oldestTime := time.Unix(0, int64(oldest[0].Score))
			result.RetryAfter = time.Until(oldestTime.Add(windowDuration))
		} else {
			result.RetryAfter = windowDuration
		}
		return result, nil
	}

	// Record this request in the window
	pipe = r.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.New().String(),
	})
	pipe.Expire(ctx, key, windowDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("client", clientKey).Msg("Failed to record rate limit entry")
	}

	result.Allowed = true
	result.Remaining = int64(limit) - currentCount - 1
	return result, nil
}

// RateLimit is a Gin middleware enforcing the sliding window limit per client IP
func (r *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, _ := r.Check(c.Request.Context(), c.ClientIP())
		if !result.Allowed {
			monitoring.Get().RateLimitHits.WithLabelValues(c.Request.URL.Path).Inc()
			c.Header("Retry-After", fmt.Sprintf("%d", int(result.RetryAfter.Seconds())+1))
			response := apierrors.NewErrorResponse(
				apierrors.ErrRateLimitedError,
				GetRequestID(c),
				c.Request.URL.Path,
				c.Request.Method,
			)
			c.AbortWithStatusJSON(apierrors.ErrRateLimitedError.HTTPStatus, response)
			return
		}
		c.Next()
	}
}
