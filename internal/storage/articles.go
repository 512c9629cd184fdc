package db

import (
	"context"
	"fmt"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/new20/newsai/internal/core/domain"
)

const (
	tableArticles = "news_articles"

	colID              = "id"
	colTitle           = "title"
	colSummary         = "summary"
	colCategory        = "category"
	colSource          = "source"
	colSourceURL       = "source_url"
	colImageURL        = "image_url"
	colImportanceScore = "importance_score"
	colIsFeatured      = "is_featured"
	colPublishedAt     = "published_at"
	colCreatedAt       = "created_at"

	genericFallbackPattern = "https://source.unsplash.com/featured/%"
)

var articleColumns = []string{
	colID, colTitle, colSummary, colCategory, colSource, colSourceURL, colImageURL,
	colImportanceScore, colIsFeatured, colPublishedAt, colCreatedAt,
}

const upsertArticleSQL = `
INSERT INTO news_articles (title, summary, category, source, source_url, image_url, importance_score, is_featured, published_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (source_url) DO UPDATE SET
	title = EXCLUDED.title,
	summary = EXCLUDED.summary,
	category = EXCLUDED.category,
	source = EXCLUDED.source,
	image_url = EXCLUDED.image_url,
	importance_score = EXCLUDED.importance_score,
	is_featured = EXCLUDED.is_featured,
	published_at = EXCLUDED.published_at
RETURNING id::text, title, summary, category, source, source_url, image_url, importance_score, is_featured, published_at, created_at`

// UpsertArticles writes all articles in one transaction keyed on source_url and returns the stored rows.
// Any failure rolls the whole batch back.
func (db *DB) UpsertArticles(ctx context.Context, articles []domain.Article) ([]domain.StoredArticle, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	var stored []domain.StoredArticle

	err := pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		stored = make([]domain.StoredArticle, 0, len(articles))

		for _, a := range articles {
			row := tx.QueryRow(ctx, upsertArticleSQL,
				SanitizeUTF8(a.Title),
				toText(a.Summary),
				toText(a.Category),
				toText(a.Source),
				a.SourceURL,
				toText(a.ImageURL),
				a.ImportanceScore,
				a.IsFeatured,
				toTimestamptz(a.PublishedAt),
			)

			s, err := scanArticle(row)
			if err != nil {
				return fmt.Errorf("upsert %s: %w", a.SourceURL, err)
			}

			stored = append(stored, s)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upsert articles: %w", err)
	}

	return stored, nil
}

// ExistingImages maps each known source URL to its stored image_url.
func (db *DB) ExistingImages(ctx context.Context, sourceURLs []string) (map[string]string, error) {
	out := make(map[string]string, len(sourceURLs))
	if len(sourceURLs) == 0 {
		return out, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(colSourceURL, colImageURL).
		From(tableArticles).
		Where(sb.In(colSourceURL, sqlbuilder.List(sourceURLs)))

	query, args := sb.Build()

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sourceURL string
			image     pgtype.Text
		)

		if err := rows.Scan(&sourceURL, &image); err != nil {
			return nil, fmt.Errorf("scan existing image: %w", err)
		}

		out[sourceURL] = fromText(image)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate existing images: %w", err)
	}

	return out, nil
}

// ArticlesNeedingImages returns the newest rows whose image is missing, a data URI,
// a generic placeholder, or a relative path.
func (db *DB) ArticlesNeedingImages(ctx context.Context, limit int) ([]domain.StoredArticle, error) {
	return db.queryArticles(ctx, needingImagesQuery(limit))
}

func needingImagesQuery(limit int) *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(selectColumns()...).
		From(tableArticles).
		Where(sb.Or(
			sb.IsNull(colImageURL),
			sb.Equal(colImageURL, ""),
			sb.ILike(colImageURL, "data:%"),
			sb.ILike(colImageURL, genericFallbackPattern),
			sb.Like(colImageURL, "/%"),
		)).
		OrderBy(colPublishedAt).Desc().
		Limit(limit)

	return sb
}

// RecentArticles returns the newest rows by publication date.
func (db *DB) RecentArticles(ctx context.Context, limit int) ([]domain.StoredArticle, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(selectColumns()...).
		From(tableArticles).
		OrderBy(colPublishedAt).Desc().
		Limit(limit)

	return db.queryArticles(ctx, sb)
}

// UpdateArticleImage sets image_url for one article.
func (db *DB) UpdateArticleImage(ctx context.Context, id, imageURL string) error {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(tableArticles).
		Set(ub.Assign(colImageURL, imageURL)).
		Where(ub.Equal(colID, id))

	query, args := ub.Build()

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update article image: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update article image: %w", pgx.ErrNoRows)
	}

	return nil
}

func selectColumns() []string {
	cols := make([]string, len(articleColumns))
	copy(cols, articleColumns)
	cols[0] = colID + "::text"

	return cols
}

func (db *DB) queryArticles(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]domain.StoredArticle, error) {
	query, args := sb.Build()

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredArticle

	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}

	return out, nil
}

func scanArticle(row pgx.Row) (domain.StoredArticle, error) {
	var (
		a                        domain.StoredArticle
		summary, category, src   pgtype.Text
		image                    pgtype.Text
		score                    pgtype.Int4
		featured                 pgtype.Bool
		publishedAt, createdAtTS pgtype.Timestamptz
	)

	if err := row.Scan(&a.ID, &a.Title, &summary, &category, &src, &a.SourceURL, &image,
		&score, &featured, &publishedAt, &createdAtTS); err != nil {
		return domain.StoredArticle{}, fmt.Errorf("scan article: %w", err)
	}

	a.Summary = fromText(summary)
	a.Category = fromText(category)
	a.Source = fromText(src)
	a.ImageURL = fromText(image)
	a.ImportanceScore = int(score.Int32)
	a.IsFeatured = featured.Bool
	a.PublishedAt = fromTimestamptz(publishedAt)
	a.CreatedAt = fromTimestamptz(createdAtTS)

	return a, nil
}
