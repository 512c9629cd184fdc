// Package app provides the application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods for the
// operational modes:
//
//   - Serve: HTTP API with optional scheduled ingestion
//   - Fetch: a single ingestion run
//   - Backfill: image search for stored articles with weak images
//   - Diagnose: image health report for recent articles
//
// Each mode builds only the components it needs.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/new20/newsai/internal/api"
	"github.com/new20/newsai/internal/core/domain"
	"github.com/new20/newsai/internal/core/llm"
	"github.com/new20/newsai/internal/core/sources"
	"github.com/new20/newsai/internal/ingest/feeds"
	"github.com/new20/newsai/internal/platform/config"
	"github.com/new20/newsai/internal/platform/observability"
	"github.com/new20/newsai/internal/process/backfill"
	"github.com/new20/newsai/internal/process/editorial"
	"github.com/new20/newsai/internal/process/filters"
	"github.com/new20/newsai/internal/process/images"
	"github.com/new20/newsai/internal/process/pipeline"
	"github.com/new20/newsai/internal/process/scoring"
	db "github.com/new20/newsai/internal/storage"
)

const (
	appEnvLocal          = "local"
	remoteCheckTimeout   = 10 * time.Second
	youtubeLookupTimeout = 15 * time.Second
	backfillHTTPTimeout  = 15 * time.Second

	logFieldSources    = "sources"
	logFieldCategories = "categories"
)

// NewLogger returns a console logger for local development and JSON on stderr otherwise.
func NewLogger(appEnv, level string) zerolog.Logger {
	var logger zerolog.Logger

	if appEnv == appEnvLocal {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	if lvl, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil && lvl != zerolog.NoLevel {
		logger = logger.Level(lvl)
	}

	return logger
}

// NewPoolOptions maps the database settings of cfg onto pool options.
func NewPoolOptions(cfg *config.Config) db.PoolOptions {
	return db.PoolOptions{
		MaxConns:          cfg.DBMaxConnections,
		MinConns:          cfg.DBMinConnections,
		MaxConnIdleTime:   cfg.DBMaxConnIdleTime,
		MaxConnLifetime:   cfg.DBMaxConnLifetime,
		HealthCheckPeriod: cfg.DBHealthCheckPeriod,
	}
}

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

// New creates a new App instance. database may be nil for modes that do not touch storage.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// registry is the loaded source and category configuration.
type registry struct {
	sources    []domain.FeedSource
	categories *sources.Categories
}

func (a *App) loadRegistry() (registry, error) {
	categories, err := sources.LoadCategories(a.cfg.CategoriesPath, a.logger)
	if err != nil {
		return registry{}, fmt.Errorf("load categories: %w", err)
	}

	srcs, err := sources.LoadSources(a.cfg.SourcesPath, a.logger)
	if err != nil {
		return registry{}, fmt.Errorf("load sources: %w", err)
	}

	a.logger.Info().
		Int(logFieldSources, len(srcs)).
		Int(logFieldCategories, len(categories.Names())).
		Msg("registry loaded")

	return registry{sources: srcs, categories: categories}, nil
}

// newPipeline builds the ingestion pipeline and everything it depends on.
func (a *App) newPipeline(reg registry) (*pipeline.Pipeline, error) {
	settings, err := pipeline.SettingsFromConfig(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("pipeline settings: %w", err)
	}

	rules, err := config.LoadEditorialRules(a.cfg.EditorialRulesPath)
	if err != nil {
		return nil, fmt.Errorf("editorial rules: %w", err)
	}

	filter, err := filters.New(rules.Filter)
	if err != nil {
		return nil, fmt.Errorf("content filter: %w", err)
	}

	fetcher := feeds.New(feeds.Options{
		Timeout:      a.cfg.FeedTimeout,
		RateLimitRPS: a.cfg.FeedRateLimitRPS,
		UserAgent:    a.cfg.FeedUserAgent,
	}, a.logger)

	return pipeline.New(settings, pipeline.Deps{
		Repo:       a.database,
		Fetcher:    fetcher,
		YouTube:    sources.NewYouTubeResolver(&http.Client{Timeout: youtubeLookupTimeout}, a.logger),
		Rewriter:   a.newRewriter(),
		Filter:     filter,
		Scorer:     scoring.New(rules.Scoring),
		Generator:  a.newImageGenerator(),
		Sources:    reg.sources,
		Categories: reg.categories,
		Logger:     a.logger,
	}), nil
}

func (a *App) newRewriter() *editorial.Rewriter {
	opts := editorial.Options{
		Model:       a.cfg.OpenRouterModel,
		MaxAttempts: a.cfg.LLMMaxRetries,
		BaseDelay:   a.cfg.LLMRetryBaseDelay,
	}

	if a.cfg.OpenRouterAPIKey == "" {
		a.logger.Warn().Msg("OPENROUTER_API_KEY not set, using local summaries")

		return editorial.New(nil, opts, a.logger)
	}

	client := llm.New(llm.Config{
		APIKey:       a.cfg.OpenRouterAPIKey,
		BaseURL:      a.cfg.OpenRouterBaseURL,
		Model:        a.cfg.OpenRouterModel,
		Referer:      a.cfg.OpenRouterReferer,
		Title:        a.cfg.OpenRouterTitle,
		Timeout:      a.cfg.LLMTimeout,
		RateLimitRPS: a.cfg.LLMRateLimitRPS,
	}, a.logger)

	return editorial.New(client, opts, a.logger)
}

// newImageGenerator returns nil when generation is switched off or has no token.
func (a *App) newImageGenerator() images.Generator {
	if !a.cfg.ImageGenerationEnabled || a.cfg.HuggingFaceToken == "" {
		a.logger.Info().Msg("image generation disabled")

		return nil
	}

	return images.NewHuggingFaceGenerator(
		&http.Client{Timeout: a.cfg.ImageGenerationTimeout},
		a.cfg.HuggingFaceBaseURL,
		a.cfg.HuggingFaceImageModel,
		a.cfg.HuggingFaceToken,
		a.cfg.ImageGenerationTimeout,
	)
}

// RunServe serves the HTTP API until ctx is cancelled, plus scheduled runs when configured.
func (a *App) RunServe(ctx context.Context) error {
	a.logger.Info().Msg("Starting server mode")

	reg, err := a.loadRegistry()
	if err != nil {
		return err
	}

	p, err := a.newPipeline(reg)
	if err != nil {
		return err
	}

	opts := api.OptionsFromConfig(a.cfg)
	opts.DatabaseName = a.database.Name()
	opts.SourcesLoaded = len(reg.sources)
	opts.CategoriesLoaded = len(reg.categories.Names())
	opts.RewriterEnabled = a.cfg.OpenRouterAPIKey != ""

	srv := api.New(opts, p, a.database, observability.HealthHandler(a.database), a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Listen(ctx, fmt.Sprintf(":%d", a.cfg.Port))
	})

	if interval := a.cfg.AutoFetchInterval(); interval > 0 {
		a.logger.Info().Dur("interval", interval).Msg("scheduled ingestion enabled")

		g.Go(func() error {
			return api.AutoFetch(ctx, p, interval, a.logger)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}

// RunFetch performs one ingestion run.
func (a *App) RunFetch(ctx context.Context, selfTest bool) (pipeline.Result, error) {
	reg, err := a.loadRegistry()
	if err != nil {
		return pipeline.Result{}, err
	}

	p, err := a.newPipeline(reg)
	if err != nil {
		return pipeline.Result{}, err
	}

	res, err := p.Run(ctx, pipeline.Options{SelfTest: selfTest})
	if err != nil {
		return res, fmt.Errorf("fetch: %w", err)
	}

	return res, nil
}

// RunBackfill replaces weak images of stored articles with stock photos.
func (a *App) RunBackfill(ctx context.Context) (backfill.Report, error) {
	client := &http.Client{Timeout: backfillHTTPTimeout}

	var providers []backfill.Provider
	if a.cfg.UnsplashAccessKey != "" {
		providers = append(providers, backfill.NewUnsplash(client, "", a.cfg.UnsplashAccessKey, a.logger))
	}

	if a.cfg.PixabayAPIKey != "" {
		providers = append(providers, backfill.NewPixabay(client, "", a.cfg.PixabayAPIKey))
	}

	b := backfill.New(a.database, providers, a.cfg.ImageBackfillBatchSize, a.cfg.ImageBackfillDelay, a.logger)

	report, err := b.Run(ctx)
	if err != nil {
		return report, fmt.Errorf("backfill: %w", err)
	}

	return report, nil
}

// RunDiagnose writes an image health report for recent articles to w.
func (a *App) RunDiagnose(ctx context.Context, remote bool, w io.Writer) error {
	var client *http.Client
	if remote {
		client = &http.Client{Timeout: remoteCheckTimeout}
	}

	d, err := backfill.Diagnose(ctx, a.database, client)
	if err != nil {
		return fmt.Errorf("diagnose: %w", err)
	}

	d.Write(w)

	return nil
}

// ListSources writes the classified source registry to w.
func (a *App) ListSources(w io.Writer) error {
	reg, err := a.loadRegistry()
	if err != nil {
		return err
	}

	return WriteSources(w, reg.sources, reg.categories)
}

// WriteSources prints one line per source with its type and category, then per-type totals
// and the sources that still need an RSS URL.
func WriteSources(w io.Writer, srcs []domain.FeedSource, categories *sources.Categories) error {
	var b strings.Builder

	for _, src := range srcs {
		t := sources.Classify(src)
		category := categories.Ensure(sources.InferCategory(t, src))

		fmt.Fprintf(&b, "%-40s %-22s %-14s %s\n", src.Name, t, category, firstURL(src))
	}

	summary := sources.Summarize(srcs)

	types := lo.Keys(summary.ByType)
	slices.Sort(types)

	fmt.Fprintf(&b, "\nTotal sources: %d\n", summary.Total)

	for _, t := range types {
		fmt.Fprintf(&b, "  %-22s %d\n", t, summary.ByType[t])
	}

	if len(summary.MissingRSS) > 0 {
		fmt.Fprintf(&b, "Missing RSS URL: %d\n", len(summary.MissingRSS))

		for _, src := range summary.MissingRSS {
			fmt.Fprintf(&b, "  - %s (%s)\n", src.Name, src.MainURL)
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write sources: %w", err)
	}

	return nil
}

func firstURL(src domain.FeedSource) string {
	if src.RSSURL != "" {
		return src.RSSURL
	}

	return src.MainURL
}
