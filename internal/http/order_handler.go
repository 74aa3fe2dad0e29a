package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_pizza/internal/domain"
)

type OrderService interface {
	Create(ctx context.Context, draft domain.OrderDraft) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error)
}

type OrderHandler struct {
	orders      OrderService
	timeout     time.Duration
	maxBodySize int64
	log         *slog.Logger
}

func NewOrderHandler(orders OrderService, timeout time.Duration, maxBodySize int64, log *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders:      orders,
		timeout:     timeout,
		maxBodySize: maxBodySize,
		log:         log,
	}
}

type UpdateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

// GET /orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.orders.List(ctx)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

// POST /orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var draft domain.OrderDraft
	if !h.decode(w, r, &draft) {
		return
	}

	order, err := h.orders.Create(ctx, draft)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	w.Header().Set("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+strconv.FormatInt(order.ID, 10))
	respondJSON(w, http.StatusCreated, order)
}

// GET /orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}

	order, err := h.orders.GetByID(ctx, id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// PATCH /orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	status := domain.OrderStatus(strings.TrimSpace(string(req.Status)))
	if status == "" {
		respondError(w, http.StatusBadRequest, "missing_status", "status is required")
		return
	}

	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}

	order, err := h.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// decode reads a JSON body of at most maxBodySize bytes into dst. On failure it
// has already written the response.
func (h *OrderHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}
