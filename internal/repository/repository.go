package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_pizza/internal/domain"
)

var (
	ErrOrderNotFound = fmt.Errorf("order %w", domain.ErrNotFound)
	ErrConflict      = errors.New("order was modified concurrently")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// StatusMutator receives a copy of the stored order and decides the next status.
// It runs inside the backend's write critical section, so the decision is made
// against the state that is actually committed. A returned error aborts the
// write and is handed back to the caller unchanged.
type StatusMutator func(current domain.Order) (domain.StatusChange, error)

// OrderRepository stores orders. Implementations never expose a general field
// update: once created, only status and updatedAt change.
type OrderRepository interface {
	// Create stores a pending order, assigning its id. A zero CreatedAt is
	// set to the current time.
	Create(ctx context.Context, order *domain.Order) (*domain.Order, error)

	Get(ctx context.Context, id int64) (*domain.Order, error)

	// List returns every order in id order, which is also insertion order.
	List(ctx context.Context) ([]*domain.Order, error)

	UpdateStatus(ctx context.Context, id int64, mutate StatusMutator) (*domain.Order, error)

	Close() error
}

func checkNewOrder(order *domain.Order) error {
	if order.Status != domain.OrderStatusPending {
		return fmt.Errorf("%w: new orders start as %q, got %q", domain.ErrValidation, domain.OrderStatusPending, order.Status)
	}
	if err := order.CheckPrices(); err != nil {
		return err
	}
	return order.CheckTotal()
}

// createdAt keeps a creation time chosen by the caller and stamps the current
// time otherwise.
func createdAt(order *domain.Order) time.Time {
	if order.CreatedAt.IsZero() {
		return time.Now().UTC()
	}
	return order.CreatedAt.UTC()
}
