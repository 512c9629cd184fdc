// Package api serves the public and admin HTTP endpoints.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/new20/newsai/internal/core/domain"
	"github.com/new20/newsai/internal/platform/config"
	"github.com/new20/newsai/internal/process/pipeline"
	db "github.com/new20/newsai/internal/storage"
)

const defaultShutdownTimeout = 10 * time.Second

// Route paths.
const (
	RouteFetchNews    = "/api/fetch-news"
	RouteAuthenticate = "/api/admin/authenticate"
	RouteSubscribe    = "/api/newsletter/subscribe"
	RouteStats        = "/api/admin/newsletter/stats"
)

// Runner executes ingestion runs.
type Runner interface {
	Run(ctx context.Context, opts pipeline.Options) (pipeline.Result, error)
}

// Subscribers stores newsletter signups.
type Subscribers interface {
	AddSubscriber(ctx context.Context, email, source string) (domain.Subscriber, error)
	SubscriberCount(ctx context.Context) (int64, error)
}

var _ Subscribers = (*db.DB)(nil)

// Options configure the server.
type Options struct {
	AdminAPIKey    string
	AllowedOrigins []string

	AdminRateLimitMax        int
	AdminRateLimitWindow     time.Duration
	SubscribeRateLimitMax    int
	SubscribeRateLimitWindow time.Duration
	ShutdownTimeout          time.Duration

	// DatabaseName is reported in run debug blocks.
	DatabaseName     string
	SourcesLoaded    int
	CategoriesLoaded int
	RewriterEnabled  bool
}

// OptionsFromConfig builds server options from the service configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		AdminAPIKey:              cfg.AdminAPIKey,
		AllowedOrigins:           cfg.AllowedOrigins,
		AdminRateLimitMax:        cfg.AdminRateLimitMax,
		AdminRateLimitWindow:     cfg.AdminRateLimitWindow,
		SubscribeRateLimitMax:    cfg.NewsletterRateLimitMax,
		SubscribeRateLimitWindow: cfg.NewsletterRateLimitWindow,
		ShutdownTimeout:          cfg.ShutdownTimeout,
	}
}

// Server is the fiber application with its collaborators.
type Server struct {
	app         *fiber.App
	opts        Options
	runner      Runner
	subscribers Subscribers
	logger      *zerolog.Logger
}

// New builds the server and registers routes. health serves /healthz, /readyz and /metrics
// and may be nil.
func New(opts Options, runner Runner, subscribers Subscribers, health http.Handler, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{
		opts:        opts,
		runner:      runner,
		subscribers: subscribers,
		logger:      logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "newsai",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})

	s.app.Use(recover.New())
	s.app.Use(s.requestLogger())
	s.app.Use(s.originGuard())
	s.app.Use(s.corsMiddleware())

	if health != nil {
		h := adaptor.HTTPHandler(health)
		s.app.Get("/healthz", h)
		s.app.Get("/readyz", h)
		s.app.Get("/metrics", h)
	}

	adminLimit := rateLimit("admin", msgAdminRateLimited, opts.AdminRateLimitMax, opts.AdminRateLimitWindow)
	subscribeLimit := rateLimit("newsletter", msgSubscribeRateLimited, opts.SubscribeRateLimitMax, opts.SubscribeRateLimitWindow)
	apiKey := s.requireAPIKey()

	s.app.Post(RouteFetchNews, adminLimit, apiKey, s.handleFetchNews)
	s.app.Post(RouteAuthenticate, adminLimit, apiKey, s.handleAuthenticate)
	s.app.Get(RouteStats, adminLimit, apiKey, s.handleStats)
	s.app.Post(RouteSubscribe, subscribeLimit, s.handleSubscribe)

	return s
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", addr).Msg("http server listening")
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	case <-ctx.Done():
		s.logger.Info().Msg("shutting down http server")

		if err := s.app.ShutdownWithTimeout(s.opts.ShutdownTimeout); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}

		return nil
	}
}
