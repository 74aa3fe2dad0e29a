// Package catalog serves the read-only pizza menu and store list.
package catalog

import (
	"context"
	"fmt"

	"github.com/fjod/go_pizza/internal/domain"
)

var (
	ErrPizzaNotFound = fmt.Errorf("pizza %w", domain.ErrNotFound)
	ErrStoreNotFound = fmt.Errorf("store %w", domain.ErrNotFound)
)

// Repository reads catalog records. Results are ordered by id.
type Repository interface {
	ListPizzas(ctx context.Context) ([]domain.Pizza, error)
	GetPizza(ctx context.Context, id int64) (*domain.Pizza, error)
	ListStores(ctx context.Context) ([]domain.Store, error)
	GetStore(ctx context.Context, id int64) (*domain.Store, error)
	Close() error
}
