package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is a line of an order. Name and Price are snapshots of the catalog
// at the time the order was placed.
type OrderItem struct {
	PizzaID  int64           `json:"id"`
	Name     string          `json:"nome"`
	Price    decimal.Decimal `json:"preco"`
	Quantity int             `json:"quantidade"`
}

// MoneyPlaces is the precision of every price and total: whole cents.
const MoneyPlaces = 2

func inCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyPlaces))
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderDraft is a cart submission before it becomes an order.
type OrderDraft struct {
	Name    string      `json:"nome"`
	Phone   string      `json:"telefone"`
	Address string      `json:"morada"`
	Notes   string      `json:"observacoes"`
	Items   []OrderItem `json:"items"`
}

// RequiredOrderFields lists the draft fields that must be present, in wire names.
var RequiredOrderFields = []string{"nome", "telefone", "morada", "items"}

// Validate reports every missing field and every malformed line item.
func (d OrderDraft) Validate() error {
	var fields []string
	if strings.TrimSpace(d.Name) == "" {
		fields = append(fields, "nome")
	}
	if strings.TrimSpace(d.Phone) == "" {
		fields = append(fields, "telefone")
	}
	if strings.TrimSpace(d.Address) == "" {
		fields = append(fields, "morada")
	}
	if len(d.Items) == 0 {
		fields = append(fields, "items")
	}
	for i, item := range d.Items {
		if item.Quantity < 1 {
			fields = append(fields, fmt.Sprintf("items[%d].quantidade", i))
		}
		if item.Price.IsNegative() || !inCents(item.Price) {
			fields = append(fields, fmt.Sprintf("items[%d].preco", i))
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// CheckPrices rejects item prices finer than a cent. Stores keep totals at
// cent precision, so such an order could not be read back consistently.
func (o *Order) CheckPrices() error {
	var fields []string
	for i, item := range o.Items {
		if !inCents(item.Price) {
			fields = append(fields, fmt.Sprintf("items[%d].preco", i))
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

type Order struct {
	ID        int64           `json:"id"`
	Name      string          `json:"nome"`
	Phone     string          `json:"telefone"`
	Address   string          `json:"morada"`
	Notes     string          `json:"observacoes"`
	Items     []OrderItem     `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Status    OrderStatus     `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

// NewPendingOrder builds an unsaved order from a validated draft.
// The repository assigns the ID, and CreatedAt when it is left zero.
func NewPendingOrder(d OrderDraft) *Order {
	items := make([]OrderItem, len(d.Items))
	copy(items, d.Items)
	return &Order{
		Name:    strings.TrimSpace(d.Name),
		Phone:   strings.TrimSpace(d.Phone),
		Address: strings.TrimSpace(d.Address),
		Notes:   d.Notes,
		Items:   items,
		Total:   Total(items),
		Status:  OrderStatusPending,
	}
}

// Total is the sum of price * quantity over items.
func Total(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// CheckTotal recomputes the total from the items and compares it with the stored one.
// Repositories call it when reconstructing an order from storage.
func (o *Order) CheckTotal() error {
	if want := Total(o.Items); !want.Equal(o.Total) {
		return fmt.Errorf("%w: order %d stored %s, items sum to %s", ErrTotalMismatch, o.ID, o.Total, want)
	}
	return nil
}

// Clone returns a deep copy so stores can hand out orders without sharing item slices.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = make([]OrderItem, len(o.Items))
	copy(c.Items, o.Items)
	if o.UpdatedAt != nil {
		t := *o.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}

// Supersedes reports whether o is at least as recent as old, two snapshots of
// the same order. Statuses only move forward, so the later stage wins.
func (o *Order) Supersedes(old *Order) bool {
	return o.Status.Stage() >= old.Status.Stage()
}

// StatusChange is the only mutation an existing order accepts.
type StatusChange struct {
	Status    OrderStatus
	UpdatedAt time.Time
}

// Apply sets the new status and stamps the update time.
func (o *Order) Apply(ch StatusChange) {
	o.Status = ch.Status
	t := ch.UpdatedAt
	o.UpdatedAt = &t
}
