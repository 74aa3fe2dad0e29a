// Package events publishes order lifecycle events to a message broker.
package events

import (
	"context"
	"time"

	"github.com/fjod/go_pizza/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	OrderCreated       EventType = "order.created"
	OrderStatusChanged EventType = "order.status_changed"
)

type OrderEvent struct {
	ID             string             `json:"id"`
	Type           EventType          `json:"type"`
	OrderID        int64              `json:"orderId"`
	Status         domain.OrderStatus `json:"status"`
	PreviousStatus domain.OrderStatus `json:"previousStatus,omitempty"`
	Total          decimal.Decimal    `json:"total"`
	OccurredAt     time.Time          `json:"occurredAt"`
}

func NewOrderCreated(order *domain.Order) OrderEvent {
	return OrderEvent{
		ID:         uuid.NewString(),
		Type:       OrderCreated,
		OrderID:    order.ID,
		Status:     order.Status,
		Total:      order.Total,
		OccurredAt: order.CreatedAt,
	}
}

func NewOrderStatusChanged(order *domain.Order, previous domain.OrderStatus) OrderEvent {
	occurred := time.Now().UTC()
	if order.UpdatedAt != nil {
		occurred = *order.UpdatedAt
	}
	return OrderEvent{
		ID:             uuid.NewString(),
		Type:           OrderStatusChanged,
		OrderID:        order.ID,
		Status:         order.Status,
		PreviousStatus: previous,
		Total:          order.Total,
		OccurredAt:     occurred,
	}
}

// Publisher delivers events. Events of one order share a key, so brokers that
// partition by key keep them in order.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// Noop drops every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, OrderEvent) error {
	return nil
}

func (Noop) Close() error {
	return nil
}
