// Package backfill repairs stored article images.
//
// Backfiller replaces missing, relative, data URI and generic placeholder images with
// relevant stock photos from Unsplash or Pixabay, falling back to the curated category
// photo. Diagnose reports on the image health of recent rows.
package backfill

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/new20/newsai/internal/core/domain"
	"github.com/new20/newsai/internal/core/errors"
	"github.com/new20/newsai/internal/platform/observability"
	"github.com/new20/newsai/internal/platform/worker"
	"github.com/new20/newsai/internal/process/images"
	db "github.com/new20/newsai/internal/storage"
)

const (
	DefaultBatchSize   = 15
	DefaultQueryDelay  = 450 * time.Millisecond
	updateDelay        = 350 * time.Millisecond
	defaultHTTPTimeout = 15 * time.Second

	queryCategoryFallback = "category-fallback"

	logFieldArticle  = "article_id"
	logFieldTitle    = "title"
	logFieldQuery    = "query"
	logFieldProvider = "provider"
)

// Store is the storage surface used by the backfill.
type Store interface {
	ArticlesNeedingImages(ctx context.Context, limit int) ([]domain.StoredArticle, error)
	UpdateArticleImage(ctx context.Context, id, imageURL string) error
}

var _ Store = (*db.DB)(nil)

// Resolution is the image picked for one article.
type Resolution struct {
	URL      string
	Provider string
	Query    string
	Score    float64
}

// Report summarizes a backfill run.
type Report struct {
	Processed int
	Updated   int
}

// Backfiller replaces weak stored images.
type Backfiller struct {
	store      Store
	providers  []Provider
	batchSize  int
	queryDelay time.Duration
	logger     *zerolog.Logger
}

// New creates a Backfiller. Providers are queried in order for every search query.
func New(store Store, providers []Provider, batchSize int, queryDelay time.Duration, logger *zerolog.Logger) *Backfiller {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	if queryDelay < 0 {
		queryDelay = DefaultQueryDelay
	}

	return &Backfiller{
		store:      store,
		providers:  providers,
		batchSize:  batchSize,
		queryDelay: queryDelay,
		logger:     nopIfNil(logger),
	}
}

// Run loads one batch of articles needing images and updates them one by one.
// Per-article failures are logged and skipped.
func (b *Backfiller) Run(ctx context.Context) (Report, error) {
	var report Report

	if len(b.providers) == 0 {
		return report, fmt.Errorf("%w: UNSPLASH_ACCESS_KEY or PIXABAY_API_KEY", errors.ErrMissingConfig)
	}

	articles, err := b.store.ArticlesNeedingImages(ctx, b.batchSize)
	if err != nil {
		return report, fmt.Errorf("loading articles needing images: %w", err)
	}

	if len(articles) == 0 {
		b.logger.Info().Msg("no articles matched the backfill filter")
		return report, nil
	}

	for i, a := range articles {
		if ctx.Err() != nil {
			return report, fmt.Errorf("backfill interrupted: %w", ctx.Err())
		}

		report.Processed++

		b.logger.Info().
			Str(logFieldTitle, a.Title).
			Str("category", a.Category).
			Msgf("processing article %d/%d", i+1, len(articles))

		res := b.Resolve(ctx, a)

		if err := b.store.UpdateArticleImage(ctx, a.ID, res.URL); err != nil {
			b.logger.Error().Err(err).Str(logFieldArticle, a.ID).Str(logFieldTitle, a.Title).Msg("failed to update article image")
			continue
		}

		report.Updated++
		observability.ImageBackfills.WithLabelValues(res.Provider).Inc()

		b.logger.Info().
			Str(logFieldArticle, a.ID).
			Str("image_url", res.URL).
			Str(logFieldProvider, res.Provider).
			Str(logFieldQuery, res.Query).
			Float64("score", res.Score).
			Msg("updated article image")

		if err := worker.Wait(ctx, b.updatePause()); err != nil {
			return report, err
		}
	}

	b.logger.Info().Int("processed", report.Processed).Int("updated", report.Updated).Msg("backfill complete")

	return report, nil
}

// Resolve searches every provider with each query in turn and returns the first photo that
// scores at least MinRelevance. Without a match it returns the category fallback.
func (b *Backfiller) Resolve(ctx context.Context, a domain.StoredArticle) Resolution {
	keywords := Keywords(a)

	for _, query := range Queries(a, keywords) {
		for _, p := range b.providers {
			photos, err := p.Search(ctx, query)
			if err != nil {
				b.logger.Warn().Err(err).Str(logFieldProvider, p.Name()).Str(logFieldQuery, query).Msg("photo search failed")
				continue
			}

			if len(photos) == 0 {
				b.logger.Debug().Str(logFieldProvider, p.Name()).Str(logFieldQuery, query).Msg("photo search returned no results")
				continue
			}

			if photo, score, ok := selectPhoto(photos, a, keywords); ok {
				return Resolution{URL: photo.URL, Provider: p.Name(), Query: query, Score: score}
			}

			b.logger.Debug().Str(logFieldProvider, p.Name()).Str(logFieldQuery, query).Msg("top result below relevance threshold")
		}

		if err := worker.Wait(ctx, b.queryDelay); err != nil {
			break
		}
	}

	return Resolution{
		URL:      images.CategoryFallbackOrDefault(a.Category),
		Provider: ProviderFallback,
		Query:    queryCategoryFallback,
	}
}

func (b *Backfiller) updatePause() time.Duration {
	if b.queryDelay == 0 {
		return 0
	}

	return updateDelay
}

func clientOrDefault(c *http.Client) *http.Client {
	if c == nil {
		return &http.Client{Timeout: defaultHTTPTimeout}
	}

	return c
}

func nopIfNil(logger *zerolog.Logger) *zerolog.Logger {
	if logger == nil {
		nop := zerolog.Nop()
		return &nop
	}

	return logger
}
