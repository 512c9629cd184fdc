package api

import (
	"crypto/subtle"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/new20/newsai/internal/platform/observability"
)

const (
	headerAPIKey   = "x-api-key"
	headerSelfTest = "x-self-test"

	msgOriginNotAllowed = "Origin not allowed"
	msgUnauthorized     = "Unauthorized"
	msgInternal         = "Internal server error"
)

// originGuard rejects cross-origin requests whose Origin is not allow-listed.
// Requests without an Origin header pass.
func (s *Server) originGuard() fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := strings.TrimRight(c.Get(fiber.HeaderOrigin), "/")
		if origin == "" || slices.Contains(s.opts.AllowedOrigins, origin) {
			return c.Next()
		}

		s.logger.Warn().Str("origin", origin).Str("path", c.Path()).Msg("blocked cors request")

		return c.Status(fiber.StatusForbidden).JSON(errorResponse{Error: msgOriginNotAllowed})
	}
}

func (s *Server) corsMiddleware() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: strings.Join(s.opts.AllowedOrigins, ","),
		AllowMethods: strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions}, ","),
		AllowHeaders: strings.Join([]string{fiber.HeaderContentType, headerAPIKey, headerSelfTest}, ","),
	})
}

// requireAPIKey compares x-api-key with the admin key in constant time.
func (s *Server) requireAPIKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		provided := c.Get(headerAPIKey)
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(s.opts.AdminAPIKey)) != 1 {
			s.logger.Warn().Str("path", c.Path()).Str("ip", clientIP(c)).Msg("unauthorized access attempt blocked")

			return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Error: msgUnauthorized})
		}

		return c.Next()
	}
}

// requestLogger logs latency and counts responses per route.
func (s *Server) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		code := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			} else {
				code = fiber.StatusInternalServerError
			}
		}

		route := c.Route().Path
		observability.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()

		s.logger.Debug().
			Str("method", c.Method()).
			Str("route", route).
			Int("status", code).
			Dur("latency", time.Since(start)).
			Msg("request")

		return err
	}
}

// errorHandler renders unhandled errors as JSON.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := msgInternal

	if fe, ok := err.(*fiber.Error); ok {
		code = fe.Code
		msg = fe.Message
	} else {
		s.logger.Error().Err(err).Str("path", c.Path()).Msg("unexpected server error")
	}

	return c.Status(code).JSON(errorResponse{Error: msg})
}
