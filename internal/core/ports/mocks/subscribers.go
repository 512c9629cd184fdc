package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/new20/newsai/internal/core/domain"
	coreerrors "github.com/new20/newsai/internal/core/errors"
	"github.com/new20/newsai/internal/core/ports"
)

var _ ports.SubscriberRepository = (*SubscriberRepository)(nil)

// SubscriberRepository is a thread-safe in-memory implementation of ports.SubscriberRepository.
type SubscriberRepository struct {
	mu   sync.RWMutex
	subs map[string]domain.Subscriber

	// Now stamps created_at. Defaults to time.Now.
	Now func() time.Time

	// AddSubscriberFn allows overriding AddSubscriber behavior.
	AddSubscriberFn func(ctx context.Context, email, source string) (domain.Subscriber, error)

	// SubscriberCountFn allows overriding SubscriberCount behavior.
	SubscriberCountFn func(ctx context.Context) (int64, error)
}

// NewSubscriberRepository creates an empty repository.
func NewSubscriberRepository() *SubscriberRepository {
	return &SubscriberRepository{subs: make(map[string]domain.Subscriber), Now: time.Now}
}

// AddSubscriber stores email, failing with ErrDuplicateSubscriber when it exists.
func (r *SubscriberRepository) AddSubscriber(ctx context.Context, email, source string) (domain.Subscriber, error) {
	if r.AddSubscriberFn != nil {
		return r.AddSubscriberFn(ctx, email, source)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[email]; ok {
		return domain.Subscriber{}, coreerrors.ErrDuplicateSubscriber
	}

	sub := domain.Subscriber{
		ID:        fmt.Sprintf("sub-%d", len(r.subs)+1),
		Email:     email,
		Source:    source,
		CreatedAt: r.Now().UTC(),
	}
	r.subs[email] = sub

	return sub, nil
}

// SubscriberCount returns the number of stored subscribers.
func (r *SubscriberRepository) SubscriberCount(ctx context.Context) (int64, error) {
	if r.SubscriberCountFn != nil {
		return r.SubscriberCountFn(ctx)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.subs)), nil
}

// Get returns the stored subscriber for email.
func (r *SubscriberRepository) Get(email string) (domain.Subscriber, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.subs[email]

	return sub, ok
}
