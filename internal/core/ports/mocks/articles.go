package mocks

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/new20/newsai/internal/core/domain"
	"github.com/new20/newsai/internal/core/ports"
)

var _ ports.ArticleRepository = (*ArticleRepository)(nil)

const genericImagePrefix = "https://source.unsplash.com/featured/"

// ArticleRepository is a thread-safe in-memory implementation of ports.ArticleRepository.
// Articles are keyed by source URL like the real table.
type ArticleRepository struct {
	mu       sync.Mutex
	rows     map[string]domain.StoredArticle
	order    []string
	upserts  [][]domain.Article
	locked   bool
	released int
	nextID   int

	// TryRunLockFn allows overriding TryRunLock behavior.
	TryRunLockFn func(ctx context.Context, lockID int64) (func(), bool, error)

	// ExistingImagesFn allows overriding ExistingImages behavior.
	ExistingImagesFn func(ctx context.Context, sourceURLs []string) (map[string]string, error)

	// UpsertArticlesFn allows overriding UpsertArticles behavior. Calls are still recorded.
	UpsertArticlesFn func(ctx context.Context, articles []domain.Article) ([]domain.StoredArticle, error)

	// ArticlesNeedingImagesFn allows overriding ArticlesNeedingImages behavior.
	ArticlesNeedingImagesFn func(ctx context.Context, limit int) ([]domain.StoredArticle, error)

	// RecentArticlesFn allows overriding RecentArticles behavior.
	RecentArticlesFn func(ctx context.Context, limit int) ([]domain.StoredArticle, error)

	// UpdateArticleImageFn allows overriding UpdateArticleImage behavior.
	UpdateArticleImageFn func(ctx context.Context, id, imageURL string) error
}

// NewArticleRepository creates an empty repository.
func NewArticleRepository() *ArticleRepository {
	return &ArticleRepository{rows: make(map[string]domain.StoredArticle)}
}

// TryRunLock hands out a single lock until it is released.
func (r *ArticleRepository) TryRunLock(ctx context.Context, lockID int64) (func(), bool, error) {
	if r.TryRunLockFn != nil {
		return r.TryRunLockFn(ctx, lockID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.locked {
		return nil, false, nil
	}

	r.locked = true

	var once sync.Once

	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.locked = false
			r.released++
			r.mu.Unlock()
		})
	}, true, nil
}

// ExistingImages maps known source URLs to their stored image.
func (r *ArticleRepository) ExistingImages(ctx context.Context, sourceURLs []string) (map[string]string, error) {
	if r.ExistingImagesFn != nil {
		return r.ExistingImagesFn(ctx, sourceURLs)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string)

	for _, u := range sourceURLs {
		if row, ok := r.rows[u]; ok {
			out[u] = row.ImageURL
		}
	}

	return out, nil
}

// UpsertArticles inserts or replaces rows by source URL, keeping id and created_at of existing rows.
func (r *ArticleRepository) UpsertArticles(ctx context.Context, articles []domain.Article) ([]domain.StoredArticle, error) {
	r.mu.Lock()
	r.upserts = append(r.upserts, slices.Clone(articles))
	r.mu.Unlock()

	if r.UpsertArticlesFn != nil {
		return r.UpsertArticlesFn(ctx, articles)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.StoredArticle, 0, len(articles))

	for _, a := range articles {
		row, ok := r.rows[a.SourceURL]
		if !ok {
			r.nextID++
			row = domain.StoredArticle{ID: fmt.Sprintf("article-%d", r.nextID), CreatedAt: time.Now().UTC()}
			r.order = append(r.order, a.SourceURL)
		}

		row.Article = a
		r.rows[a.SourceURL] = row
		out = append(out, row)
	}

	return out, nil
}

// ArticlesNeedingImages returns rows with an empty, data URI, generic or relative image, newest first.
func (r *ArticleRepository) ArticlesNeedingImages(ctx context.Context, limit int) ([]domain.StoredArticle, error) {
	if r.ArticlesNeedingImagesFn != nil {
		return r.ArticlesNeedingImagesFn(ctx, limit)
	}

	rows := r.sorted()

	out := make([]domain.StoredArticle, 0, len(rows))

	for _, row := range rows {
		img := row.ImageURL
		if img == "" || strings.HasPrefix(strings.ToLower(img), "data:") ||
			strings.HasPrefix(img, genericImagePrefix) || strings.HasPrefix(img, "/") {
			out = append(out, row)
		}
	}

	return out[:min(limit, len(out))], nil
}

// RecentArticles returns the newest rows by publication date.
func (r *ArticleRepository) RecentArticles(ctx context.Context, limit int) ([]domain.StoredArticle, error) {
	if r.RecentArticlesFn != nil {
		return r.RecentArticlesFn(ctx, limit)
	}

	rows := r.sorted()

	return rows[:min(limit, len(rows))], nil
}

// UpdateArticleImage sets the image of the row with id.
func (r *ArticleRepository) UpdateArticleImage(ctx context.Context, id, imageURL string) error {
	if r.UpdateArticleImageFn != nil {
		return r.UpdateArticleImageFn(ctx, id, imageURL)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for u, row := range r.rows {
		if row.ID == id {
			row.ImageURL = imageURL
			r.rows[u] = row

			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrArticleNotFound, id)
}

// Seed stores rows as they are, bypassing upsert recording.
func (r *ArticleRepository) Seed(rows ...domain.StoredArticle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range rows {
		if _, ok := r.rows[row.SourceURL]; !ok {
			r.order = append(r.order, row.SourceURL)
		}

		r.rows[row.SourceURL] = row
	}
}

// Article returns the row stored for sourceURL.
func (r *ArticleRepository) Article(sourceURL string) (domain.StoredArticle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[sourceURL]

	return row, ok
}

// Upserted returns every article passed to UpsertArticles, in call order.
func (r *ArticleRepository) Upserted() []domain.Article {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Article
	for _, batch := range r.upserts {
		out = append(out, batch...)
	}

	return out
}

// Released counts released run locks.
func (r *ArticleRepository) Released() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.released
}

// sorted orders rows by publication date, newest first, then insertion order.
func (r *ArticleRepository) sorted() []domain.StoredArticle {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([]domain.StoredArticle, 0, len(r.order))
	for _, u := range r.order {
		rows = append(rows, r.rows[u])
	}

	slices.SortStableFunc(rows, func(a, b domain.StoredArticle) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})

	return rows
}
