// Package pipeline runs one ingestion pass: build the feed list from the source registry,
// fetch and filter items, rewrite and score them, resolve images, then merge and upsert.
//
// Runs are serialized. A second Run while one is in flight, in this process or on another
// replica sharing the database, returns errors.ErrRunInProgress.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/new20/newsai/internal/core/domain"
	coreerrors "github.com/new20/newsai/internal/core/errors"
	"github.com/new20/newsai/internal/core/sources"
	"github.com/new20/newsai/internal/platform/config"
	"github.com/new20/newsai/internal/platform/observability"
	"github.com/new20/newsai/internal/platform/worker"
	"github.com/new20/newsai/internal/process/editorial"
	"github.com/new20/newsai/internal/process/filters"
	"github.com/new20/newsai/internal/process/images"
	"github.com/new20/newsai/internal/process/merge"
	"github.com/new20/newsai/internal/process/scoring"
	db "github.com/new20/newsai/internal/storage"
)

// Repository is the storage surface a run needs.
type Repository interface {
	TryRunLock(ctx context.Context, lockID int64) (release func(), ok bool, err error)
	ExistingImages(ctx context.Context, sourceURLs []string) (map[string]string, error)
	UpsertArticles(ctx context.Context, articles []domain.Article) ([]domain.StoredArticle, error)
}

// Compile-time assertion that *db.DB implements Repository.
var _ Repository = (*db.DB)(nil)

// FeedFetcher retrieves feed items.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, feedURL string) ([]domain.FeedItem, error)
	FetchHuggingFaceModels(ctx context.Context) ([]domain.FeedItem, error)
}

// FeedURLResolver maps a YouTube channel or playlist page to its RSS feed.
type FeedURLResolver interface {
	FeedURL(ctx context.Context, mainURL string, cache *sources.YouTubeCache) (string, error)
}

// Rewriter produces the editorial package for an article.
type Rewriter interface {
	Rewrite(ctx context.Context, in editorial.Input) editorial.Package
	Enabled() bool
}

// Settings bound the work done by a run.
type Settings struct {
	MaxSourcesPerRun  int
	MaxArticlesPerRun int
	MaxItemsPerFeed   int
	ItemConcurrency   int
	RunTimeout        time.Duration
	ImagePolicy       images.Policy
	YouTubeCachePath  string
}

// SettingsFromConfig copies the ingestion limits out of the service configuration.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	policy, err := images.ParsePolicy(cfg.ImageMissingPolicy)
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		MaxSourcesPerRun:  cfg.MaxSourcesPerRun,
		MaxArticlesPerRun: cfg.MaxArticlesPerRun,
		MaxItemsPerFeed:   cfg.MaxItemsPerFeed,
		ItemConcurrency:   cfg.ItemConcurrency,
		RunTimeout:        cfg.RunTimeout,
		ImagePolicy:       policy,
		YouTubeCachePath:  cfg.YouTubeCachePath,
	}, nil
}

// Deps are the collaborators of a Pipeline. Generator and YouTube may be nil.
type Deps struct {
	Repo       Repository
	Fetcher    FeedFetcher
	YouTube    FeedURLResolver
	Rewriter   Rewriter
	Filter     *filters.Filter
	Scorer     *scoring.Scorer
	Generator  images.Generator
	Sources    []domain.FeedSource
	Categories *sources.Categories
	Logger     *zerolog.Logger
}

// Options select the run mode.
type Options struct {
	// SelfTest caps the run to a couple of sources and a handful of articles.
	SelfTest bool
}

// RunMetrics are the counters reported back to the caller of a run. ArticlesSummarized counts
// only packages written by the model; local fallback summaries are not included.
type RunMetrics struct {
	ArticlesFetched    int `json:"articlesFetchedCount"`
	ArticlesSummarized int `json:"articlesSummarizedCount"`
	Upserted           int `json:"upsertedCount"`
}

// Result describes a finished run.
type Result struct {
	RunID            string
	Message          string
	Articles         []domain.StoredArticle
	Metrics          RunMetrics
	SourcesLoaded    int
	CategoriesLoaded int
	RewriterEnabled  bool
}

// Pipeline executes ingestion runs.
type Pipeline struct {
	settings Settings
	deps     Deps
	logger   *zerolog.Logger

	// mu serializes runs inside the process; the advisory lock covers other replicas.
	mu sync.Mutex
}

// runState holds the per-run counters shared by item workers.
type runState struct {
	fetched    atomic.Int64
	summarized atomic.Int64
	resolver   *images.Resolver
}

// New creates a pipeline.
func New(settings Settings, deps Deps) *Pipeline {
	if deps.Logger == nil {
		nop := zerolog.Nop()
		deps.Logger = &nop
	}

	if settings.ItemConcurrency <= 0 {
		settings.ItemConcurrency = DefaultItemConcurrency
	}

	if settings.MaxItemsPerFeed <= 0 {
		settings.MaxItemsPerFeed = DefaultMaxItemsPerFeed
	}

	if settings.ImagePolicy == "" {
		settings.ImagePolicy = images.PolicyFallback
	}

	return &Pipeline{settings: settings, deps: deps, logger: deps.Logger}
}

// Run performs one ingestion pass. Feed and item failures are logged and skipped;
// only lock and persistence failures are returned.
func (p *Pipeline) Run(ctx context.Context, opts Options) (Result, error) {
	if !p.mu.TryLock() {
		return Result{}, coreerrors.ErrRunInProgress
	}
	defer p.mu.Unlock()

	release, ok, err := p.deps.Repo.TryRunLock(ctx, db.RunLockID)
	if err != nil {
		return Result{}, fmt.Errorf("acquire run lock: %w", err)
	}

	if !ok {
		return Result{}, coreerrors.ErrRunInProgress
	}
	defer release()

	res := Result{
		RunID:           uuid.NewString(),
		SourcesLoaded:   len(p.deps.Sources),
		RewriterEnabled: p.deps.Rewriter != nil && p.deps.Rewriter.Enabled(),
	}

	if p.deps.Categories != nil {
		res.CategoriesLoaded = len(p.deps.Categories.Names())
	}

	logger := p.logger.With().Str(LogFieldRunID, res.RunID).Bool(LogFieldSelfTest, opts.SelfTest).Logger()
	logger.Info().Int("sources", res.SourcesLoaded).Msg("starting ingestion run")

	start := time.Now()

	err = worker.RunWithTimeout(ctx, p.settings.RunTimeout, func(ctx context.Context) error {
		return p.run(ctx, &logger, opts, &res)
	})

	status := StatusSuccess
	if err != nil {
		status = StatusError

		logger.Error().Err(err).Msg("ingestion run failed")
	} else {
		logger.Info().
			Int("fetched", res.Metrics.ArticlesFetched).
			Int("summarized", res.Metrics.ArticlesSummarized).
			Int("upserted", res.Metrics.Upserted).
			Dur("duration", time.Since(start)).
			Msg(res.Message)
	}

	observability.RunsTotal.WithLabelValues(status).Inc()
	observability.RunDuration.Observe(time.Since(start).Seconds())
	observability.LastRunTimestamp.SetToCurrentTime()

	return res, err
}

func (p *Pipeline) run(ctx context.Context, logger *zerolog.Logger, opts Options, res *Result) error {
	cache := sources.LoadYouTubeCache(p.settings.YouTubeCachePath, logger)

	feeds := selectFeeds(p.buildFeeds(ctx, logger, cache), p.maxSources(opts))

	if err := cache.Save(); err != nil {
		logger.Warn().Err(err).Msg("failed to save youtube cache")
	}

	state := &runState{
		resolver: images.NewResolver(p.deps.Generator, images.NewGeneratorState(), p.settings.ImagePolicy, logger),
	}

	limit := p.maxArticles(opts)

	var articles []domain.Article

	for _, feed := range feeds {
		remaining := limit - len(articles)
		if limit > 0 && remaining <= 0 {
			break
		}

		if ctx.Err() != nil {
			break
		}

		found := p.processFeed(ctx, logger, feed, state, remaining)
		articles = append(articles, found...)

		logger.Info().Str(LogFieldFeed, feed.Name).Int("articles", len(found)).Msg("feed processed")
	}

	res.Metrics.ArticlesFetched = int(state.fetched.Load())
	res.Metrics.ArticlesSummarized = int(state.summarized.Load())

	if len(articles) == 0 {
		res.Message = MessageNoArticles
		return nil
	}

	stored, err := p.persist(ctx, logger, articles)
	if err != nil {
		return err
	}

	res.Articles = stored
	res.Metrics.Upserted = len(stored)
	res.Message = fmt.Sprintf("Upserted %d news articles", len(stored))

	return nil
}

// persist drops duplicate source URLs, protects stronger stored images and upserts in one transaction.
func (p *Pipeline) persist(ctx context.Context, logger *zerolog.Logger, articles []domain.Article) ([]domain.StoredArticle, error) {
	articles = lo.UniqBy(articles, func(a domain.Article) string { return a.SourceURL })

	urls := lo.Map(articles, func(a domain.Article, _ int) string { return a.SourceURL })

	existing, err := p.deps.Repo.ExistingImages(ctx, urls)
	if err != nil {
		logger.Warn().Err(err).Msg("unable to prefetch existing images for merge protection")

		existing = nil
	}

	merged := merge.Articles(existing, articles)

	stored, err := p.deps.Repo.UpsertArticles(ctx, merged)
	if err != nil {
		return nil, fmt.Errorf("upsert: %w", err)
	}

	observability.ArticlesUpserted.Add(float64(len(stored)))

	return stored, nil
}

func (p *Pipeline) maxSources(opts Options) int {
	if opts.SelfTest {
		return SelfTestMaxSources
	}

	return p.settings.MaxSourcesPerRun
}

// maxArticles returns 0 for no limit.
func (p *Pipeline) maxArticles(opts Options) int {
	if opts.SelfTest {
		return SelfTestMaxArticles
	}

	return max(p.settings.MaxArticlesPerRun, 0)
}
