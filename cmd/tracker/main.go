package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fjod/go_pizza/internal/domain"
	"github.com/fjod/go_pizza/internal/tracking"
)

// steps is the happy path shown as a progress bar.
var steps = []domain.OrderStatus{
	domain.OrderStatusPending,
	domain.OrderStatusPreparing,
	domain.OrderStatusOutForDelivery,
	domain.OrderStatusDelivered,
}

var stepLabels = map[domain.OrderStatus]string{
	domain.OrderStatusPending:        "Order received",
	domain.OrderStatusPreparing:      "In the oven",
	domain.OrderStatusOutForDelivery: "On the way",
	domain.OrderStatusDelivered:      "Delivered",
	domain.OrderStatusCancelled:      "Cancelled",
}

type updateMsg tracking.Update

type doneMsg struct{}

type model struct {
	orderID int64
	updates <-chan tracking.Update
	cancel  context.CancelFunc

	order   *domain.Order
	lastErr error
	checked time.Time
	done    bool
}

func waitForUpdate(updates <-chan tracking.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(u)
	}
}

func (m model) Init() tea.Cmd {
	return waitForUpdate(m.updates)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancel()
			return m, tea.Quit
		}
	case updateMsg:
		m.checked = time.Now()
		if msg.Err != nil {
			m.lastErr = msg.Err
		} else {
			m.order = msg.Order
			m.lastErr = nil
		}
		return m, waitForUpdate(m.updates)
	case doneMsg:
		m.done = true
	}
	return m, nil
}

func (m model) View() string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "Tracking order #%d\n\n", m.orderID)

	if m.order == nil {
		if m.lastErr != nil {
			fmt.Fprintf(b, "Error: %v\n", m.lastErr)
		} else {
			fmt.Fprintln(b, "Loading...")
		}
		fmt.Fprintln(b, "\nq to quit")
		return b.String()
	}

	if m.order.Status == domain.OrderStatusCancelled {
		fmt.Fprintf(b, " x %s\n", stepLabels[domain.OrderStatusCancelled])
	} else {
		reached := true
		for _, st := range steps {
			marker := "[ ]"
			if reached {
				marker = "[x]"
			}
			if st == m.order.Status {
				reached = false
				marker = "[>]"
				if st.IsTerminal() {
					marker = "[x]"
				}
			}
			fmt.Fprintf(b, " %s %s\n", marker, stepLabels[st])
		}
	}

	fmt.Fprintf(b, "\n%s, %s\n", m.order.Name, m.order.Address)
	for _, item := range m.order.Items {
		fmt.Fprintf(b, "  %dx %s\n", item.Quantity, item.Name)
	}
	fmt.Fprintf(b, "Total: %s EUR\n", m.order.Total.StringFixed(2))

	if m.lastErr != nil {
		fmt.Fprintf(b, "\nLast check failed: %v\n", m.lastErr)
	}
	if m.done {
		fmt.Fprintln(b, "\nNo further updates.")
	} else if !m.checked.IsZero() {
		fmt.Fprintf(b, "\nLast update %s\n", m.checked.Format("15:04:05"))
	}
	fmt.Fprintln(b, "\nq to quit")
	return b.String()
}

func main() {
	apiURL := flag.String("api", getenv("PIZZA_API_URL", "http://localhost:3001/api"), "pizza API base URL")
	orderID := flag.Int64("order", 0, "order id to track")
	interval := flag.Duration("interval", tracking.DefaultInterval, "polling interval")
	flag.Parse()

	if *orderID <= 0 {
		fmt.Fprintln(os.Stderr, "usage: tracker -order <id> [-api url] [-interval 3s]")
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := tracking.NewWatcher(tracking.NewClient(*apiURL, nil), *interval)
	m := model{
		orderID: *orderID,
		updates: watcher.Watch(ctx, *orderID),
		cancel:  cancel,
	}

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
