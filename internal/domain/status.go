package domain

import "fmt"

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// transitions lists, for every known status, the statuses it may move to.
// A status with an empty list is terminal. No status allows a self-loop.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing:      {OrderStatusOutForDelivery, OrderStatusCancelled},
	OrderStatusOutForDelivery: {OrderStatusDelivered},
	OrderStatusDelivered:      {},
	OrderStatusCancelled:      {},
}

// stages orders the statuses along the lifecycle. Every transition moves to a
// higher stage. The terminal statuses share the last stage since one order
// never reaches both.
var stages = map[OrderStatus]int{
	OrderStatusPending:        0,
	OrderStatusPreparing:      1,
	OrderStatusOutForDelivery: 2,
	OrderStatusDelivered:      3,
	OrderStatusCancelled:      3,
}

// Statuses returns every known status in lifecycle order.
func Statuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusPreparing,
		OrderStatusOutForDelivery,
		OrderStatusDelivered,
		OrderStatusCancelled,
	}
}

func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s OrderStatus) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// AllowedTransitions returns a copy of the statuses reachable from s.
// Unknown statuses have no allowed transitions.
func (s OrderStatus) AllowedTransitions() []OrderStatus {
	next := transitions[s]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

// Stage is the position of s in the lifecycle, -1 for unknown statuses.
func (s OrderStatus) Stage() int {
	stage, ok := stages[s]
	if !ok {
		return -1
	}
	return stage
}

func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// AttemptTransition validates current -> requested against the transition table.
// It has no side effects: persisting the new status and stamping the update time
// is the caller's job.
func AttemptTransition(current, requested OrderStatus) (OrderStatus, error) {
	if !requested.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownState, requested)
	}
	if !current.CanTransitionTo(requested) {
		return "", &TransitionError{
			Current:   current,
			Requested: requested,
			Allowed:   current.AllowedTransitions(),
		}
	}
	return requested, nil
}
