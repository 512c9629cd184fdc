package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/new20/newsai/internal/core/domain"
	coreerrors "github.com/new20/newsai/internal/core/errors"
)

const (
	tableSubscribers = "newsletter_subscribers"
	colEmail         = "email"

	pgUniqueViolation = "23505"
)

// AddSubscriber inserts a newsletter subscriber. An existing email yields ErrDuplicateSubscriber.
func (db *DB) AddSubscriber(ctx context.Context, email, source string) (domain.Subscriber, error) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(tableSubscribers).
		Cols(colEmail, colSource).
		Values(SanitizeUTF8(email), toText(source)).
		SQL("RETURNING id::text, created_at")

	query, args := ib.Build()

	sub := domain.Subscriber{Email: email, Source: source}

	var createdAt pgtype.Timestamptz
	if err := db.Pool.QueryRow(ctx, query, args...).Scan(&sub.ID, &createdAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.Subscriber{}, coreerrors.ErrDuplicateSubscriber
		}

		return domain.Subscriber{}, fmt.Errorf("insert subscriber: %w", err)
	}

	sub.CreatedAt = fromTimestamptz(createdAt)

	return sub, nil
}

// SubscriberCount returns the number of newsletter subscribers.
func (db *DB) SubscriberCount(ctx context.Context) (int64, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(sb.As("COUNT(*)", "subscriber_count")).From(tableSubscribers)

	query, args := sb.Build()

	var count int64
	if err := db.Pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count subscribers: %w", err)
	}

	return count, nil
}
