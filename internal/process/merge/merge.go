// Package merge protects already-enriched rows from weaker re-ingested values.
package merge

import (
	"github.com/new20/newsai/internal/core/domain"
	"github.com/new20/newsai/internal/platform/observability"
	"github.com/new20/newsai/internal/process/images"
)

// Image returns existing when it is a real renderable image and incoming is missing,
// unrenderable or a generic fallback; otherwise incoming.
func Image(existing, incoming string) string {
	if isStrong(existing) && !isStrong(incoming) {
		return existing
	}

	return incoming
}

func isStrong(u string) bool {
	return images.IsRenderable(u) && !images.IsGenericFallback(u)
}

// Articles applies Image per source URL. existing maps source_url to the stored image_url.
// The input slice is not modified.
func Articles(existing map[string]string, in []domain.Article) []domain.Article {
	out := make([]domain.Article, len(in))

	for i, a := range in {
		if prev, ok := existing[a.SourceURL]; ok {
			merged := Image(prev, a.ImageURL)
			if merged != a.ImageURL {
				observability.ImageMergeProtected.Inc()
			}

			a.ImageURL = merged
		}

		out[i] = a
	}

	return out
}
