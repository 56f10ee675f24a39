package middleware

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/milestone-escrow/backend/internal/metrics"
	"github.com/milestone-escrow/backend/internal/ratelimit"
)

// RateLimit applies a fixed window per action, caller and IP.
// Anonymous callers share the "anon" subject.
func RateLimit(limiter *ratelimit.Limiter, action string, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject := "anon"
		if id := GetUserID(c); id != uuid.Nil {
			subject = id.String()
		}
		key := fmt.Sprintf("%s:%s:%s", action, subject, c.IP())

		if !limiter.Allow(c.UserContext(), key, limit, window) {
			metrics.RateLimited.WithLabelValues(action).Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(window.Seconds()))))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}

		return c.Next()
	}
}
