package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/new20/newsai/internal/core/domain"
	"github.com/new20/newsai/internal/platform/htmlutils"
	"github.com/new20/newsai/internal/platform/observability"
	"github.com/new20/newsai/internal/process/editorial"
	"github.com/new20/newsai/internal/process/filters"
	"github.com/new20/newsai/internal/process/images"
)

// buildArticle turns a feed item into an article, or nil when the item is dropped.
func (p *Pipeline) buildArticle(ctx context.Context, logger *zerolog.Logger, feed domain.Feed, item domain.FeedItem, state *runState) *domain.Article {
	title := htmlutils.Sanitize(item.Title)
	if title == "" {
		title = defaultTitle
	}

	sourceURL := strings.TrimSpace(item.SourceURL())
	if sourceURL == "" || sourceURL == "#" {
		observability.ArticlesDropped.WithLabelValues(dropReasonMissingURL).Inc()
		logger.Debug().Str(LogFieldFeed, feed.Name).Str(LogFieldTitle, title).Msg("skipped item without source url")

		return nil
	}

	snippet := htmlutils.Sanitize(firstNonEmpty(item.Snippet, item.Summary, item.Description, item.Content))
	if snippet == "" {
		snippet = defaultSnippet
	}

	body := htmlutils.Sanitize(firstNonEmpty(item.ContentEncoded, item.Content, item.Summary, item.Description))

	verdict := p.deps.Filter.Check(filters.Candidate{
		Title:      title,
		Summary:    snippet,
		Body:       body,
		SourceType: feed.Type,
	})
	if !verdict.Allowed {
		logger.Debug().
			Str(LogFieldFeed, feed.Name).
			Str(LogFieldTitle, title).
			Str(LogFieldReason, verdict.Reason).
			Str("detail", verdict.Detail).
			Msg("filtered item")

		return nil
	}

	summary := snippet

	if p.deps.Rewriter != nil {
		pkg := p.deps.Rewriter.Rewrite(ctx, editorial.Input{
			Title:    title,
			Snippet:  snippet,
			Body:     body,
			Source:   feed.Name,
			Category: feed.Category,
		})

		if text := pkg.Text(); text != "" {
			summary = text
		}

		if pkg.Generated {
			state.summarized.Add(1)
		}
	}

	score := p.deps.Scorer.Score(title, summary, feed.Name)
	observability.ImportanceScores.Observe(float64(score))

	if score < p.deps.Scorer.MinImportance(feed.IsResearch) {
		observability.ArticlesDropped.WithLabelValues(dropReasonLowImportance).Inc()
		return nil
	}

	imageURL, _ := state.resolver.Resolve(ctx, item, images.ArticleMeta{
		Title:    title,
		Summary:  summary,
		Category: feed.Category,
		Source:   feed.Name,
	})
	if imageURL == "" {
		observability.ArticlesDropped.WithLabelValues(dropReasonMissingImage).Inc()
		logger.Info().Str(LogFieldFeed, feed.Name).Str(LogFieldTitle, title).Msg("skipped item without image")

		return nil
	}

	published := time.Now().UTC()
	if item.Published != nil && !item.Published.IsZero() {
		published = item.Published.UTC()
	}

	observability.ArticlesAccepted.WithLabelValues(feed.Category).Inc()

	return &domain.Article{
		Title:           htmlutils.Truncate(title, maxTitleLength, ""),
		Summary:         summary,
		Category:        feed.Category,
		Source:          feed.Name,
		SourceURL:       sourceURL,
		ImageURL:        imageURL,
		ImportanceScore: score,
		IsFeatured:      p.deps.Scorer.IsFeatured(score),
		PublishedAt:     published,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}

	return ""
}
