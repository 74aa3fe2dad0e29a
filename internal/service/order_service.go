package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/fjod/go_pizza/internal/cache"
	"github.com/fjod/go_pizza/internal/domain"
	"github.com/fjod/go_pizza/internal/events"
	"github.com/fjod/go_pizza/internal/metrics"
	"github.com/fjod/go_pizza/internal/repository"
	"golang.org/x/sync/singleflight"
)

// publishTimeout bounds how long a request waits for the broker after its write committed.
const publishTimeout = 3 * time.Second

type OrderService struct {
	repo      repository.OrderRepository
	cache     cache.OrderCache
	publisher events.Publisher
	metrics   *metrics.OrderMetrics
	log       *slog.Logger
	now       func() time.Time
	sfg       singleflight.Group // Prevents cache stampede
}

type Option func(*OrderService)

func WithCache(c cache.OrderCache) Option {
	return func(s *OrderService) { s.cache = c }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *OrderService) { s.publisher = p }
}

func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *OrderService) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *OrderService) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *OrderService) { s.now = now }
}

func NewOrderService(repo repository.OrderRepository, opts ...Option) *OrderService {
	s := &OrderService{
		repo:      repo,
		cache:     cache.Noop{},
		publisher: events.Noop{},
		log:       slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the draft and stores it as a pending order.
func (s *OrderService) Create(ctx context.Context, draft domain.OrderDraft) (*domain.Order, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	pending := domain.NewPendingOrder(draft)
	pending.CreatedAt = s.now().UTC()

	order, err := s.repo.Create(ctx, pending)
	if err != nil {
		s.log.ErrorContext(ctx, "repo create order error", "error", err)
		return nil, err
	}

	s.metrics.OrderCreated()
	s.log.InfoContext(ctx, "order created", "order_id", order.ID, "total", order.Total.String(), "items", len(order.Items))
	s.publish(ctx, events.NewOrderCreated(order))
	return order, nil
}

// GetByID reads through the cache. Concurrent misses for one id share a single
// repository read.
func (s *OrderService) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	v, err, _ := s.sfg.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		order, err := s.cache.Get(ctx, id)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WarnContext(ctx, "cache get error", "order_id", id, "error", err) // continue with the repository
		}

		order, err = s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		// Add, not Set: a status change committed after this read owns the entry.
		if errAdd := s.cache.Add(ctx, order); errAdd != nil {
			s.log.WarnContext(ctx, "cache add error", "order_id", id, "error", errAdd)
		}
		return order, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Order).Clone(), nil
}

func (s *OrderService) List(ctx context.Context) ([]*domain.Order, error) {
	return s.repo.List(ctx)
}

// UpdateStatus moves an order to status if the lifecycle allows it. The check
// runs inside the repository's write, against the committed status.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	var previous domain.OrderStatus
	order, err := s.repo.UpdateStatus(ctx, id, func(current domain.Order) (domain.StatusChange, error) {
		previous = current.Status
		next, err := domain.AttemptTransition(current.Status, status)
		if err != nil {
			return domain.StatusChange{}, err
		}
		return domain.StatusChange{Status: next, UpdatedAt: s.now().UTC()}, nil
	})

	if err != nil {
		if errors.Is(err, domain.ErrIllegalTransition) || errors.Is(err, domain.ErrUnknownState) {
			s.metrics.Transition(previous.String(), statusLabel(status), "rejected")
			s.log.InfoContext(ctx, "order status change rejected", "order_id", id, "from", previous, "to", status, "error", err)
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.log.ErrorContext(ctx, "repo update status error", "order_id", id, "error", err)
		}
		return nil, err
	}

	s.metrics.Transition(previous.String(), order.Status.String(), "applied")
	s.log.InfoContext(ctx, "order status changed", "order_id", id, "from", previous, "to", order.Status)
	s.refreshCache(ctx, order)
	s.publish(ctx, events.NewOrderStatusChanged(order, previous))
	return order, nil
}

// statusLabel keeps client input out of metric labels.
func statusLabel(st domain.OrderStatus) string {
	if !st.Valid() {
		return "unknown"
	}
	return st.String()
}

// refreshCache writes the committed order so pollers see the new status
// without waiting for the entry to expire.
func (s *OrderService) refreshCache(ctx context.Context, order *domain.Order) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Set(ctx, order); err != nil {
		s.log.WarnContext(ctx, "cache refresh error", "order_id", order.ID, "error", err)
	}
}

// publish is best effort: the order is already committed, so a broker failure
// is logged and never returned.
func (s *OrderService) publish(ctx context.Context, ev events.OrderEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.WarnContext(ctx, "publish order event failed", "order_id", ev.OrderID, "event_type", ev.Type, "error", err)
	}
}
