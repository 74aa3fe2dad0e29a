package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_pizza/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(name string) *domain.Order {
	return domain.NewPendingOrder(domain.OrderDraft{
		Name:    name,
		Phone:   "+351 912 345 678",
		Address: "Rua Garrett 25, Lisboa",
		Notes:   "sem cebola",
		Items: []domain.OrderItem{
			{PizzaID: 1, Name: "Margherita", Price: decimal.RequireFromString("8.50"), Quantity: 2},
			{PizzaID: 2, Name: "Pepperoni", Price: decimal.RequireFromString("10.00"), Quantity: 1},
		},
	})
}

// transitionTo is the mutator the order service uses.
func transitionTo(status domain.OrderStatus) StatusMutator {
	return func(current domain.Order) (domain.StatusChange, error) {
		next, err := domain.AttemptTransition(current.Status, status)
		if err != nil {
			return domain.StatusChange{}, err
		}
		return domain.StatusChange{Status: next, UpdatedAt: time.Now().UTC()}, nil
	}
}

// runRepositoryContract checks the behaviour every backend shares.
// newRepo must return an empty repository.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) OrderRepository) {
	ctx := context.Background()

	t.Run("CreateAssignsSequentialIDs", func(t *testing.T) {
		repo := newRepo(t)

		first, err := repo.Create(ctx, newTestOrder("Ana"))
		require.NoError(t, err)
		second, err := repo.Create(ctx, newTestOrder("Rui"))
		require.NoError(t, err)

		assert.Greater(t, first.ID, int64(0))
		assert.Equal(t, first.ID+1, second.ID)
		assert.False(t, first.CreatedAt.IsZero())
		assert.Nil(t, first.UpdatedAt)
		assert.Equal(t, domain.OrderStatusPending, first.Status)
		assert.True(t, decimal.RequireFromString("27").Equal(first.Total))
	})

	t.Run("CreateRejectsTamperedTotal", func(t *testing.T) {
		repo := newRepo(t)
		order := newTestOrder("Ana")
		order.Total = decimal.NewFromInt(1)

		_, err := repo.Create(ctx, order)
		assert.ErrorIs(t, err, domain.ErrTotalMismatch)
	})

	t.Run("CreateRejectsPricesFinerThanCents", func(t *testing.T) {
		repo := newRepo(t)
		order := newTestOrder("Ana")
		order.Items[0].Price = decimal.RequireFromString("8.555")
		order.Total = domain.Total(order.Items)

		_, err := repo.Create(ctx, order)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, []string{"items[0].preco"}, ve.Fields)

		orders, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, orders)
	})

	t.Run("CreateKeepsGivenCreationTime", func(t *testing.T) {
		repo := newRepo(t)
		at := time.Date(2026, 5, 1, 19, 30, 0, 0, time.UTC)
		order := newTestOrder("Ana")
		order.CreatedAt = at

		created, err := repo.Create(ctx, order)
		require.NoError(t, err)
		assert.True(t, at.Equal(created.CreatedAt), "got %s", created.CreatedAt)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, at.Equal(got.CreatedAt), "got %s", got.CreatedAt)
	})

	t.Run("CreateRejectsNonPendingStatus", func(t *testing.T) {
		repo := newRepo(t)
		order := newTestOrder("Ana")
		order.Status = domain.OrderStatusDelivered

		_, err := repo.Create(ctx, order)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("GetRoundTrip", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, newTestOrder("Ana"))
		require.NoError(t, err)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)

		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "Ana", got.Name)
		assert.Equal(t, "sem cebola", got.Notes)
		require.Len(t, got.Items, 2)
		assert.Equal(t, int64(1), got.Items[0].PizzaID)
		assert.Equal(t, "Margherita", got.Items[0].Name)
		assert.True(t, decimal.RequireFromString("8.50").Equal(got.Items[0].Price))
		assert.Equal(t, 2, got.Items[0].Quantity)
		assert.True(t, created.Total.Equal(got.Total))
		assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Second)
	})

	t.Run("GetNotFound", func(t *testing.T) {
		repo := newRepo(t)

		order, err := repo.Get(ctx, 4242)
		assert.ErrorIs(t, err, ErrOrderNotFound)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Nil(t, order)
	})

	t.Run("ListInInsertionOrder", func(t *testing.T) {
		repo := newRepo(t)

		empty, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, empty)

		for _, name := range []string{"Ana", "Rui", "Inês"} {
			_, err := repo.Create(ctx, newTestOrder(name))
			require.NoError(t, err)
		}

		orders, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, orders, 3)
		assert.Equal(t, "Ana", orders[0].Name)
		assert.Equal(t, "Rui", orders[1].Name)
		assert.Equal(t, "Inês", orders[2].Name)
		assert.Less(t, orders[0].ID, orders[1].ID)
		assert.Less(t, orders[1].ID, orders[2].ID)
	})

	t.Run("UpdateStatusFollowsLifecycle", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, newTestOrder("Ana"))
		require.NoError(t, err)

		updated, err := repo.UpdateStatus(ctx, created.ID, transitionTo(domain.OrderStatusPreparing))
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusPreparing, updated.Status)
		require.NotNil(t, updated.UpdatedAt)
		assert.WithinDuration(t, created.CreatedAt, updated.CreatedAt, time.Second)

		_, err = repo.UpdateStatus(ctx, created.ID, transitionTo(domain.OrderStatusDelivered))
		var te *domain.TransitionError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, domain.OrderStatusPreparing, te.Current)
		assert.Equal(t, []domain.OrderStatus{domain.OrderStatusOutForDelivery, domain.OrderStatusCancelled}, te.Allowed)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusPreparing, got.Status, "rejected transition must not be stored")
		assert.True(t, created.Total.Equal(got.Total))
		assert.Len(t, got.Items, 2)
	})

	t.Run("UpdateStatusNotFound", func(t *testing.T) {
		repo := newRepo(t)
		called := false

		_, err := repo.UpdateStatus(ctx, 999, func(domain.Order) (domain.StatusChange, error) {
			called = true
			return domain.StatusChange{}, nil
		})
		assert.ErrorIs(t, err, ErrOrderNotFound)
		assert.False(t, called)
	})

	t.Run("ConcurrentCreatesGetDistinctIDs", func(t *testing.T) {
		repo := newRepo(t)
		const n = 20

		var wg sync.WaitGroup
		ids := make(chan int64, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				order, err := repo.Create(ctx, newTestOrder("Ana"))
				if assert.NoError(t, err) {
					ids <- order.ID
				}
			}()
		}
		wg.Wait()
		close(ids)

		seen := make(map[int64]bool)
		for id := range ids {
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
		assert.Len(t, seen, n)
	})

	t.Run("ConcurrentTransitionsHaveOneWinner", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, newTestOrder("Ana"))
		require.NoError(t, err)

		const n = 10
		var wg sync.WaitGroup
		results := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.UpdateStatus(ctx, created.ID, transitionTo(domain.OrderStatusPreparing))
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		succeeded := 0
		for err := range results {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, domain.ErrIllegalTransition)
		}
		assert.Equal(t, 1, succeeded)
	})
}
