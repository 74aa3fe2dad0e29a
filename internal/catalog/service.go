package catalog

import (
	"context"
	"time"

	"github.com/fjod/go_pizza/internal/domain"
	"github.com/fjod/go_pizza/internal/locator"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListPizzas returns the menu. A non-empty category keeps only exact matches.
func (s *Service) ListPizzas(ctx context.Context, category string) ([]domain.Pizza, error) {
	pizzas, err := s.repo.ListPizzas(ctx)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return pizzas, nil
	}

	filtered := make([]domain.Pizza, 0, len(pizzas))
	for _, p := range pizzas {
		if p.Category == category {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// PizzaOfTheDay rotates through the available pizzas by day of year, so every
// call on the same calendar day of date picks the same pizza.
func (s *Service) PizzaOfTheDay(ctx context.Context, date time.Time) (*domain.FeaturedPizza, error) {
	pizzas, err := s.repo.ListPizzas(ctx)
	if err != nil {
		return nil, err
	}

	available := make([]domain.Pizza, 0, len(pizzas))
	for _, p := range pizzas {
		if p.Available {
			available = append(available, p)
		}
	}
	if len(available) == 0 {
		return nil, domain.ErrEmptyCatalog
	}

	featured := domain.NewFeaturedPizza(available[date.YearDay()%len(available)])
	return &featured, nil
}

func (s *Service) GetPizza(ctx context.Context, id int64) (*domain.Pizza, error) {
	return s.repo.GetPizza(ctx, id)
}

func (s *Service) ListStores(ctx context.Context) ([]domain.Store, error) {
	return s.repo.ListStores(ctx)
}

func (s *Service) GetStore(ctx context.Context, id int64) (*domain.Store, error) {
	return s.repo.GetStore(ctx, id)
}

// NearestStore ranks every store by distance from origin.
func (s *Service) NearestStore(ctx context.Context, origin domain.Coordinates) (locator.Ranking, error) {
	stores, err := s.repo.ListStores(ctx)
	if err != nil {
		return locator.Ranking{}, err
	}
	return locator.Nearest(origin, stores)
}
