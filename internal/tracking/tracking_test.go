package tracking

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_pizza/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_GetOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/orders/7":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":7,"nome":"Ana","items":[{"id":1,"nome":"Margherita","preco":8.5,"quantidade":2}],"total":17,"status":"preparing","createdAt":"2026-05-01T19:30:00Z"}`))
		case "/api/orders/8":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"order not found"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"internal server error","code":"internal_error"}`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/", nil)
	ctx := context.Background()

	order, err := c.GetOrder(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), order.ID)
	assert.Equal(t, domain.OrderStatusPreparing, order.Status)
	assert.NoError(t, order.CheckTotal())

	_, err = c.GetOrder(ctx, 8)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.GetOrder(ctx, 9)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "internal server error", apiErr.Message)
}

func TestClient_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, nil).GetOrder(context.Background(), 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

// scriptedGetter answers with the given responses in turn, then repeats the last one.
type scriptedGetter struct {
	mu    sync.Mutex
	steps []Update
	calls int
}

func (g *scriptedGetter) GetOrder(context.Context, int64) (*domain.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	step := g.steps[min(g.calls, len(g.steps)-1)]
	g.calls++
	if step.Err != nil {
		return nil, step.Err
	}
	return step.Order.Clone(), nil
}

func (g *scriptedGetter) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func orderWith(status domain.OrderStatus) Update {
	return Update{Order: &domain.Order{ID: 1, Status: status}}
}

func collect(t *testing.T, updates <-chan Update) []Update {
	t.Helper()
	var got []Update
	timeout := time.After(2 * time.Second)
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return got
			}
			got = append(got, u)
		case <-timeout:
			t.Fatal("watch did not stop")
			return nil
		}
	}
}

func TestWatcher_StopsAtTerminalStatus(t *testing.T) {
	boom := errors.New("connection reset")
	g := &scriptedGetter{steps: []Update{
		orderWith(domain.OrderStatusPending),
		orderWith(domain.OrderStatusPending),
		orderWith(domain.OrderStatusPreparing),
		{Err: boom},
		orderWith(domain.OrderStatusOutForDelivery),
		orderWith(domain.OrderStatusDelivered),
		orderWith(domain.OrderStatusDelivered),
	}}

	got := collect(t, NewWatcher(g, time.Millisecond).Watch(context.Background(), 1))

	require.Len(t, got, 5)
	assert.Equal(t, domain.OrderStatusPending, got[0].Order.Status)
	assert.Equal(t, domain.OrderStatusPreparing, got[1].Order.Status, "unchanged status is not repeated")
	assert.ErrorIs(t, got[2].Err, boom)
	assert.Equal(t, domain.OrderStatusOutForDelivery, got[3].Order.Status)
	assert.Equal(t, domain.OrderStatusDelivered, got[4].Order.Status)
	assert.Equal(t, 6, g.Calls(), "no polling after delivered")
}

func TestWatcher_AlreadyTerminal(t *testing.T) {
	g := &scriptedGetter{steps: []Update{orderWith(domain.OrderStatusCancelled)}}

	got := collect(t, NewWatcher(g, time.Millisecond).Watch(context.Background(), 1))

	require.Len(t, got, 1)
	assert.Equal(t, domain.OrderStatusCancelled, got[0].Order.Status)
}

func TestWatcher_StopsWhenOrderDoesNotExist(t *testing.T) {
	g := &scriptedGetter{steps: []Update{{Err: ErrOrderNotFound}}}

	got := collect(t, NewWatcher(g, time.Millisecond).Watch(context.Background(), 1))

	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0].Err, domain.ErrNotFound)
	assert.Equal(t, 1, g.Calls())
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	g := &scriptedGetter{steps: []Update{orderWith(domain.OrderStatusPreparing)}}
	ctx, cancel := context.WithCancel(context.Background())

	updates := NewWatcher(g, 5*time.Millisecond).Watch(ctx, 1)
	first := <-updates
	assert.Equal(t, domain.OrderStatusPreparing, first.Order.Status)

	require.Eventually(t, func() bool { return g.Calls() >= 3 }, time.Second, time.Millisecond)
	cancel()

	assert.Empty(t, collect(t, updates))
	calls := g.Calls()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, g.Calls(), "polling stopped after cancel")
}

func TestWatcher_CancelWhileReceiverIsGone(t *testing.T) {
	g := &scriptedGetter{steps: []Update{orderWith(domain.OrderStatusPending)}}
	ctx, cancel := context.WithCancel(context.Background())

	updates := NewWatcher(g, time.Millisecond).Watch(ctx, 1)
	// Nobody reads the first update; cancelling must still release the goroutine.
	require.Eventually(t, func() bool { return g.Calls() == 1 }, time.Second, time.Millisecond)
	cancel()

	_, open := <-updates
	for open {
		_, open = <-updates
	}
}

func TestNewWatcher_DefaultInterval(t *testing.T) {
	w := NewWatcher(&scriptedGetter{}, 0)
	assert.Equal(t, DefaultInterval, w.interval)
}
