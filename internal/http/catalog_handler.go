package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_pizza/internal/domain"
	"github.com/fjod/go_pizza/internal/locator"
	"github.com/go-chi/chi/v5"
)

type CatalogService interface {
	ListPizzas(ctx context.Context, category string) ([]domain.Pizza, error)
	PizzaOfTheDay(ctx context.Context, date time.Time) (*domain.FeaturedPizza, error)
	GetPizza(ctx context.Context, id int64) (*domain.Pizza, error)
	ListStores(ctx context.Context) ([]domain.Store, error)
	GetStore(ctx context.Context, id int64) (*domain.Store, error)
	NearestStore(ctx context.Context, origin domain.Coordinates) (locator.Ranking, error)
}

type CatalogHandler struct {
	catalog CatalogService
	timeout time.Duration
	now     func() time.Time
	log     *slog.Logger
}

func NewCatalogHandler(catalog CatalogService, timeout time.Duration, log *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		timeout: timeout,
		now:     time.Now,
		log:     log,
	}
}

// GET /pizzas?categoria=
func (h *CatalogHandler) ListPizzas(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	pizzas, err := h.catalog.ListPizzas(ctx, r.URL.Query().Get("categoria"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if pizzas == nil {
		pizzas = []domain.Pizza{}
	}
	respondJSON(w, http.StatusOK, pizzas)
}

// GET /pizzas/pizza-of-the-day
func (h *CatalogHandler) PizzaOfTheDay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	pizza, err := h.catalog.PizzaOfTheDay(ctx, h.now())
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, pizza)
}

// GET /pizzas/{id}
func (h *CatalogHandler) GetPizza(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "pizza not found")
		return
	}

	pizza, err := h.catalog.GetPizza(ctx, id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, pizza)
}

// GET /stores
func (h *CatalogHandler) ListStores(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	stores, err := h.catalog.ListStores(ctx)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if stores == nil {
		stores = []domain.Store{}
	}
	respondJSON(w, http.StatusOK, stores)
}

// GET /stores/{id}
func (h *CatalogHandler) GetStore(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "store not found")
		return
	}

	store, err := h.catalog.GetStore(ctx, id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, store)
}

// GET /stores/nearest?lat=&lng=
func (h *CatalogHandler) NearestStore(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil {
		respondError(w, http.StatusBadRequest, "invalid_coordinates", "lat and lng must be numbers")
		return
	}

	ranking, err := h.catalog.NearestStore(ctx, domain.Coordinates{Lat: lat, Lng: lng})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, ranking)
}

// pathID reads the {id} URL parameter. Ids that are not positive integers
// cannot name anything, so callers answer 404.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
