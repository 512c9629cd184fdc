package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/new20/newsai/internal/core/domain"
	"github.com/new20/newsai/internal/core/sources"
	"github.com/new20/newsai/internal/platform/observability"
	"github.com/new20/newsai/internal/platform/worker"
)

// buildFeeds classifies every registry source and resolves YouTube feed URLs through cache.
func (p *Pipeline) buildFeeds(ctx context.Context, logger *zerolog.Logger, cache *sources.YouTubeCache) []domain.Feed {
	feeds := make([]domain.Feed, 0, len(p.deps.Sources))

	for _, src := range p.deps.Sources {
		t := sources.Classify(src)

		category := sources.InferCategory(t, src)
		if p.deps.Categories != nil {
			category = p.deps.Categories.Ensure(category)
		}

		feed := domain.Feed{
			ID:         sources.SafeID(src.Name),
			Name:       src.Name,
			URL:        src.RSSURL,
			MainURL:    src.MainURL,
			Type:       t,
			Category:   category,
			IsResearch: sources.IsResearch(t, category),
		}

		if t.IsYouTube() && feed.URL == "" && p.deps.YouTube != nil {
			u, err := p.deps.YouTube.FeedURL(ctx, src.MainURL, cache)
			if err != nil {
				logger.Warn().Err(err).Str(LogFieldFeed, src.Name).Str("main_url", src.MainURL).Msg("unable to resolve youtube rss")
			} else {
				feed.URL = u
			}
		}

		feeds = append(feeds, feed)
	}

	return feeds
}

// selectFeeds keeps RSS feeds with an http URL followed by API feeds, capped to limit when positive.
func selectFeeds(feeds []domain.Feed, limit int) []domain.Feed {
	rss := lo.Filter(feeds, func(f domain.Feed, _ int) bool {
		return f.IsRSS() && strings.HasPrefix(f.URL, "http")
	})
	api := lo.Filter(feeds, func(f domain.Feed, _ int) bool {
		return f.Type == domain.SourceResearchPlatformAPI
	})

	selected := append(rss, api...)
	if limit > 0 && len(selected) > limit {
		selected = selected[:limit]
	}

	return selected
}

// processFeed fetches one feed and builds its articles in parallel, keeping item order.
// A positive remaining caps the number of articles returned.
func (p *Pipeline) processFeed(ctx context.Context, logger *zerolog.Logger, feed domain.Feed, state *runState, remaining int) []domain.Article {
	items, err := p.fetchItems(ctx, feed)
	if err != nil {
		observability.FeedsFetched.WithLabelValues(string(feed.Type), StatusError).Inc()
		logger.Warn().Err(err).Str(LogFieldFeed, feed.Name).Str(LogFieldType, string(feed.Type)).Msg("error fetching feed")

		return nil
	}

	observability.FeedsFetched.WithLabelValues(string(feed.Type), StatusSuccess).Inc()

	if len(items) > p.settings.MaxItemsPerFeed {
		items = items[:p.settings.MaxItemsPerFeed]
	}

	state.fetched.Add(int64(len(items)))
	observability.FeedItemsFetched.WithLabelValues(string(feed.Type)).Add(float64(len(items)))

	built := make([]*domain.Article, len(items))

	var g errgroup.Group

	g.SetLimit(p.settings.ItemConcurrency)

	for i, item := range items {
		g.Go(func() error {
			defer worker.RecoverPanic(logger, "build article")

			built[i] = p.buildArticle(ctx, logger, feed, item, state)

			return nil
		})
	}

	_ = g.Wait()

	out := lo.FilterMap(built, func(a *domain.Article, _ int) (domain.Article, bool) {
		if a == nil {
			return domain.Article{}, false
		}

		return *a, true
	})

	if remaining > 0 && len(out) > remaining {
		out = out[:remaining]
	}

	return out
}

func (p *Pipeline) fetchItems(ctx context.Context, feed domain.Feed) ([]domain.FeedItem, error) {
	start := time.Now()
	defer func() {
		observability.FeedFetchDuration.Observe(time.Since(start).Seconds())
	}()

	if feed.Type == domain.SourceResearchPlatformAPI {
		return p.deps.Fetcher.FetchHuggingFaceModels(ctx)
	}

	return p.deps.Fetcher.FetchFeed(ctx, feed.URL)
}
