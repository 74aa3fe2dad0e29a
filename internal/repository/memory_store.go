package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/fjod/go_pizza/internal/domain"
)

// MemoryStore implements OrderRepository with in-memory storage.
// A single mutex serializes writers, so id assignment and the status check of
// UpdateStatus cannot interleave with another write.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[int64]*domain.Order // id -> order
	nextID int64

	// persist, when set, receives the full collection (with the pending write
	// applied) before the write is committed to memory. An error discards the write.
	persist func(orders []*domain.Order) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[int64]*domain.Order),
	}
}

// Create stores a copy of order with the next id.
func (s *MemoryStore) Create(_ context.Context, order *domain.Order) (*domain.Order, error) {
	if err := checkNewOrder(order); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := order.Clone()
	stored.ID = s.nextID + 1
	stored.CreatedAt = createdAt(order)
	stored.UpdatedAt = nil

	if err := s.flush(stored); err != nil {
		return nil, err
	}

	s.orders[stored.ID] = stored
	s.nextID = stored.ID
	return stored.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.orders[id]
	if !exists {
		return nil, ErrOrderNotFound
	}
	return order.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sorted(nil), nil
}

// UpdateStatus runs mutate under the write lock and commits its result.
func (s *MemoryStore) UpdateStatus(_ context.Context, id int64, mutate StatusMutator) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.orders[id]
	if !exists {
		return nil, ErrOrderNotFound
	}

	change, err := mutate(*current.Clone())
	if err != nil {
		return nil, err
	}

	updated := current.Clone()
	updated.Apply(change)

	if err := s.flush(updated); err != nil {
		return nil, err
	}

	s.orders[id] = updated
	return updated.Clone(), nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// flush hands the collection, with pending replacing its stored version, to persist.
// Callers hold the write lock.
func (s *MemoryStore) flush(pending *domain.Order) error {
	if s.persist == nil {
		return nil
	}
	return s.persist(s.sorted(pending))
}

// sorted returns copies of all orders in id order. A non-nil override replaces
// (or adds) the order with the same id.
func (s *MemoryStore) sorted(override *domain.Order) []*domain.Order {
	result := make([]*domain.Order, 0, len(s.orders)+1)
	for id, order := range s.orders {
		if override != nil && id == override.ID {
			continue
		}
		result = append(result, order.Clone())
	}
	if override != nil {
		result = append(result, override.Clone())
	}
	slices.SortFunc(result, func(a, b *domain.Order) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return result
}
