// internal/server/ratelimit.go
package server

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"forecast-narrator/internal/common/database"
	apperrors "forecast-narrator/internal/common/errors"
	"forecast-narrator/internal/common/logger"
	"forecast-narrator/internal/common/metrics"
)

const rateLimitKeyPrefix = "forecast:ratelimit:"

// RateLimiter is a fixed-window limiter per client IP backed by Redis. When
// Redis is unavailable requests are let through.
type RateLimiter struct {
	redis  *database.RedisClient
	limit  int64
	window time.Duration
	logger logger.Logger
}

// NewRateLimiter creates a limiter allowing requestsPerMinute requests per client IP.
func NewRateLimiter(client *database.RedisClient, requestsPerMinute int, log logger.Logger) *RateLimiter {
	return &RateLimiter{
		redis:  client,
		limit:  int64(requestsPerMinute),
		window: time.Minute,
		logger: log.With(map[string]interface{}{"component": "ratelimit"}),
	}
}

// Handler returns the fiber middleware enforcing the limit.
func (r *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := rateLimitKeyPrefix + c.IP()

		count, err := r.redis.IncrWindow(c.UserContext(), key, r.window)
		if err != nil {
			r.logger.Warn("rate limiter unavailable, allowing request", map[string]interface{}{
				"error": err.Error(),
			})
			return c.Next()
		}

		remaining := r.limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.FormatInt(r.limit, 10))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > r.limit {
			metrics.RateLimitRejections.Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(r.window.Seconds())))
			return apperrors.NewRateLimitedError(fmt.Sprintf("more than %d requests per %s from %s", r.limit, r.window, c.IP()))
		}
		return c.Next()
	}
}
