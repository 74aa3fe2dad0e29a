package tracking

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_pizza/internal/domain"
)

const DefaultInterval = 3 * time.Second

type OrderGetter interface {
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
}

// Update carries either a fresh order or the error of a failed fetch.
type Update struct {
	Order *domain.Order
	Err   error
}

type Watcher struct {
	client   OrderGetter
	interval time.Duration
}

func NewWatcher(client OrderGetter, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{client: client, interval: interval}
}

// Watch polls the order until ctx is done, the order reaches a terminal
// status, or it turns out not to exist. An update is sent for the first fetch,
// for every status change and for every failed fetch. The channel is closed
// when polling stops.
func (w *Watcher) Watch(ctx context.Context, id int64) <-chan Update {
	updates := make(chan Update)

	go func() {
		defer close(updates)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		var last domain.OrderStatus
		for {
			order, err := w.client.GetOrder(ctx, id)
			switch {
			case ctx.Err() != nil:
				return
			case err != nil:
				if !send(ctx, updates, Update{Err: err}) || errors.Is(err, domain.ErrNotFound) {
					return
				}
			case order.Status != last:
				last = order.Status
				if !send(ctx, updates, Update{Order: order}) || order.Status.IsTerminal() {
					return
				}
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return updates
}

func send(ctx context.Context, updates chan<- Update, u Update) bool {
	select {
	case updates <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
