// Package ports provides domain-centric interfaces for external dependencies.
// Consumers usually declare the narrower subset they need; these are the full
// storage contracts the Postgres adapter satisfies.
package ports

import (
	"context"

	"github.com/new20/newsai/internal/core/domain"
)

// RunLocker guards ingestion runs across processes.
type RunLocker interface {
	TryRunLock(ctx context.Context, lockID int64) (release func(), ok bool, err error)
}

// ArticleRepository handles news article persistence.
type ArticleRepository interface {
	RunLocker
	UpsertArticles(ctx context.Context, articles []domain.Article) ([]domain.StoredArticle, error)
	ExistingImages(ctx context.Context, sourceURLs []string) (map[string]string, error)
	ArticlesNeedingImages(ctx context.Context, limit int) ([]domain.StoredArticle, error)
	RecentArticles(ctx context.Context, limit int) ([]domain.StoredArticle, error)
	UpdateArticleImage(ctx context.Context, id, imageURL string) error
}

// SubscriberRepository handles newsletter signups.
type SubscriberRepository interface {
	AddSubscriber(ctx context.Context, email, source string) (domain.Subscriber, error)
	SubscriberCount(ctx context.Context) (int64, error)
}
