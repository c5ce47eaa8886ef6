// internal/server/middleware.go
package server

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"forecast-narrator/internal/common/logger"
	"forecast-narrator/internal/common/metrics"
)

// accessLog logs and measures every request. Errors from the chain are
// rendered here so the logged status is the one the client receives.
func accessLog(log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		route := c.Route().Path
		elapsed := time.Since(start)

		metrics.HTTPRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Method(), route).Observe(elapsed.Seconds())

		log.Info("http request", map[string]interface{}{
			"requestId": c.Locals(requestIDLocal),
			"method":    c.Method(),
			"path":      c.Path(),
			"route":     route,
			"status":    status,
			"latencyMs": elapsed.Milliseconds(),
			"ip":        c.IP(),
		})
		return nil
	}
}

const maxRequestIDLength = 64

// sanitizeRequestID drops a caller-supplied X-Request-ID that is too long or
// holds characters outside [A-Za-z0-9._-], so a fresh id is generated instead.
func sanitizeRequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id := c.Get(fiber.HeaderXRequestID); id != "" && !validRequestID(id) {
			c.Request().Header.Del(fiber.HeaderXRequestID)
		}
		return c.Next()
	}
}

func validRequestID(id string) bool {
	if len(id) > maxRequestIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
