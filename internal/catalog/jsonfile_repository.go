package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fjod/go_pizza/internal/domain"
)

// JSONFileRepository serves the catalog from pizzas.json and stores.json in one
// directory. The files are read once; the catalog never changes at runtime.
type JSONFileRepository struct {
	pizzas []domain.Pizza
	stores []domain.Store
}

func NewJSONFileRepository(dir string) (*JSONFileRepository, error) {
	var pizzas []domain.Pizza
	if err := readJSON(filepath.Join(dir, "pizzas.json"), &pizzas); err != nil {
		return nil, err
	}
	var stores []domain.Store
	if err := readJSON(filepath.Join(dir, "stores.json"), &stores); err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(pizzas))
	for _, p := range pizzas {
		if p.ID <= 0 || seen[p.ID] {
			return nil, fmt.Errorf("pizzas.json: invalid or duplicate id %d", p.ID)
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("pizzas.json: pizza %d has a negative price", p.ID)
		}
		seen[p.ID] = true
	}
	clear(seen)
	for _, s := range stores {
		if seen[s.ID] {
			return nil, fmt.Errorf("stores.json: duplicate id %d", s.ID)
		}
		if !s.Coordinates.Valid() {
			return nil, fmt.Errorf("stores.json: store %d: %w", s.ID, domain.ErrValidation)
		}
		seen[s.ID] = true
	}

	sort.Slice(pizzas, func(i, j int) bool { return pizzas[i].ID < pizzas[j].ID })
	sort.Slice(stores, func(i, j int) bool { return stores[i].ID < stores[j].ID })

	return &JSONFileRepository{pizzas: pizzas, stores: stores}, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (r *JSONFileRepository) ListPizzas(_ context.Context) ([]domain.Pizza, error) {
	pizzas := make([]domain.Pizza, len(r.pizzas))
	copy(pizzas, r.pizzas)
	return pizzas, nil
}

func (r *JSONFileRepository) GetPizza(_ context.Context, id int64) (*domain.Pizza, error) {
	for _, p := range r.pizzas {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, ErrPizzaNotFound
}

func (r *JSONFileRepository) ListStores(_ context.Context) ([]domain.Store, error) {
	stores := make([]domain.Store, len(r.stores))
	copy(stores, r.stores)
	return stores, nil
}

func (r *JSONFileRepository) GetStore(_ context.Context, id int64) (*domain.Store, error) {
	for _, s := range r.stores {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, ErrStoreNotFound
}

func (r *JSONFileRepository) Close() error {
	return nil
}
