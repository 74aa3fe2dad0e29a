package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_pizza/internal/domain"
)

// OrderCache holds recent order snapshots for status polling.
//
// Add is for filling the cache after a read from the repository: it never
// replaces an entry, so a slow read cannot hide a newer status. Set is for
// the order a write just committed: it replaces the entry unless the cached
// snapshot is already further along the lifecycle.
type OrderCache interface {
	Get(ctx context.Context, id int64) (*domain.Order, error)
	Add(ctx context.Context, order *domain.Order) error
	Set(ctx context.Context, order *domain.Order) error
}

var ErrCacheMiss = errors.New("cache miss")

// Noop is the cache used when no redis is configured: every read misses.
type Noop struct{}

func (Noop) Get(context.Context, int64) (*domain.Order, error) {
	return nil, ErrCacheMiss
}

func (Noop) Add(context.Context, *domain.Order) error {
	return nil
}

func (Noop) Set(context.Context, *domain.Order) error {
	return nil
}
