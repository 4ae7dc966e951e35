package order

import (
	"context"
	"math"
	"time"
)

const (
	// StatusCompleted is the only status an order is ever created with.
	StatusCompleted = "completed"

	// DefaultPaymentMethod is stored when the cart carries no payment method.
	DefaultPaymentMethod = "cash"

	// MaxQuantity is the largest line quantity the ledger stores (INTEGER).
	MaxQuantity = math.MaxInt32
)

// Order is the denormalized view of a committed order: the header, the
// owning cashier and the nested line items in cart order.
type Order struct {
	ID            int64
	UserID        int64
	Username      string
	CashierName   string
	Total         int64
	PaymentMethod string
	Status        string
	CreatedAt     time.Time
	Items         []Item
}

// Item is a persisted order line. Name and price are snapshots taken from the
// cart at submission time.
type Item struct {
	ID       int64
	OrderID  int64
	MenuID   int64
	MenuName string
	Price    int64
	Quantity int
	Subtotal int64
}

// CartItem is a single entry of a submitted cart. Prices are in minor units.
type CartItem struct {
	MenuID   int64
	Name     string
	Price    int64
	Quantity int
}

// Subtotal returns the line amount persisted for the item.
func (c CartItem) Subtotal() int64 {
	return c.Price * int64(c.Quantity)
}

// CreateOrderRequest holds the input for submitting a cart.
type CreateOrderRequest struct {
	UserID        int64
	Items         []CartItem
	Total         int64
	PaymentMethod string
}

// NewOrder is a validated order ready to be written to the ledger.
type NewOrder struct {
	UserID        int64
	Total         int64
	PaymentMethod string
	Status        string
	Items         []CartItem
}

// Filter narrows an order listing. Zero-valued fields impose no constraint;
// all set fields must hold simultaneously. Both date bounds are inclusive.
type Filter struct {
	DateFrom time.Time
	DateTo   time.Time
	UserID   int64
}

// List is the result of an order listing together with aggregates computed
// over exactly the returned orders.
type List struct {
	Orders       []Order
	Count        int
	TotalRevenue int64
}

// Repository defines ledger operations for orders.
type Repository interface {
	// Create writes the header and every item in a single transaction and
	// returns the generated order id. On error nothing is persisted.
	Create(ctx context.Context, o *NewOrder) (int64, error)
	// GetByID returns ErrNotFound when no order has the given id.
	GetByID(ctx context.Context, id int64) (*Order, error)
	// List returns matching orders, most recent first.
	List(ctx context.Context, f Filter) ([]Order, error)
}
