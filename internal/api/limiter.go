package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/new20/newsai/internal/platform/observability"
)

const headerForwardedFor = "X-Forwarded-For"

// rateLimit allows maxRequests per client IP in every fixed window and answers 429 with message
// past that. Each call owns its counters, so routes sharing one handler share one budget.
// A non-positive maxRequests or window disables limiting.
func rateLimit(name, message string, maxRequests int, window time.Duration) fiber.Handler {
	disabled := maxRequests <= 0 || window <= 0

	return limiter.New(limiter.Config{
		Next:              func(*fiber.Ctx) bool { return disabled },
		Max:               maxRequests,
		Expiration:        window,
		KeyGenerator:      clientIP,
		LimiterMiddleware: limiter.FixedWindow{},
		LimitReached: func(c *fiber.Ctx) error {
			observability.HTTPRateLimited.WithLabelValues(name).Inc()

			return c.Status(fiber.StatusTooManyRequests).JSON(errorResponse{Error: message})
		},
	})
}

// clientIP is the first X-Forwarded-For entry, else the connection's remote address.
func clientIP(c *fiber.Ctx) string {
	if fwd := c.Get(headerForwardedFor); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}

	if ip := c.IP(); ip != "" {
		return ip
	}

	return "unknown"
}
