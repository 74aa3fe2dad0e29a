package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_pizza/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	Orders  OrderService
	Catalog CatalogService
	Logger  *slog.Logger

	// Optional. Without them requests are not measured and /metrics is not served.
	Metrics        *metrics.ServerMetrics
	MetricsHandler http.Handler

	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

// NewRouter serves the pizza API at the root and again under /api.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxRequestBodySize == 0 {
		cfg.MaxRequestBodySize = 1 << 20 // 1MB
	}

	catalog := NewCatalogHandler(cfg.Catalog, cfg.RequestTimeout, log)
	orders := NewOrderHandler(cfg.Orders, cfg.RequestTimeout, cfg.MaxRequestBodySize, log)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestIDHeader)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(log))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(Recoverer(log))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	// Set before any Route/Mount so sub-routers inherit them.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not_found", "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/", index)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	apiRoutes(r, catalog, orders)
	r.Route("/api", func(r chi.Router) {
		apiRoutes(r, catalog, orders)
	})

	return r
}

func apiRoutes(r chi.Router, catalog *CatalogHandler, orders *OrderHandler) {
	r.Route("/pizzas", func(r chi.Router) {
		r.Get("/", catalog.ListPizzas)
		r.Get("/pizza-of-the-day", catalog.PizzaOfTheDay)
		r.Get("/{id}", catalog.GetPizza)
	})
	r.Route("/stores", func(r chi.Router) {
		r.Get("/", catalog.ListStores)
		r.Get("/nearest", catalog.NearestStore)
		r.Get("/{id}", catalog.GetStore)
	})
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", orders.List)
		r.Post("/", orders.Create)
		r.Get("/{id}", orders.Get)
		r.Patch("/{id}/status", orders.UpdateStatus)
	})
}

type indexResponse struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}

// GET /
func index(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, indexResponse{
		Message: "Pizza ordering API",
		Endpoints: map[string]string{
			"pizzas":        "/api/pizzas",
			"pizzaOfTheDay": "/api/pizzas/pizza-of-the-day",
			"stores":        "/api/stores",
			"nearestStore":  "/api/stores/nearest?lat={lat}&lng={lng}",
			"orders":        "/api/orders",
			"health":        "/health",
		},
	})
}
