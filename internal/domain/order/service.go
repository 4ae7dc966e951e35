package order

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/xenking/pos-ledger/internal/domain/order"

// Service implements order submission and retrieval on top of a Repository.
type Service struct {
	orders Repository

	created metric.Int64Counter
	revenue metric.Int64Counter
}

// NewService creates an order Service. Metrics are recorded through mp.
func NewService(orders Repository, mp metric.MeterProvider) (*Service, error) {
	meter := mp.Meter(meterName)

	created, err := meter.Int64Counter("pos.orders.created",
		metric.WithDescription("Number of committed orders"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders created counter")
	}
	revenue, err := meter.Int64Counter("pos.orders.revenue",
		metric.WithDescription("Declared totals of committed orders in minor units"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders revenue counter")
	}

	return &Service{
		orders:  orders,
		created: created,
		revenue: revenue,
	}, nil
}

// CreateOrder validates the cart, writes it as one atomic order and returns
// the committed order as read back from the ledger.
//
// The declared total is trusted as sent by the client; it is not reconciled
// with the sum of line subtotals.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = DefaultPaymentMethod
	}

	id, err := s.orders.Create(ctx, &NewOrder{
		UserID:        req.UserID,
		Total:         req.Total,
		PaymentMethod: method,
		Status:        StatusCompleted,
		Items:         req.Items,
	})
	if err != nil {
		return nil, &StorageError{Op: "create order", Err: err}
	}

	attrs := metric.WithAttributes(attribute.String("payment_method", method))
	s.created.Add(ctx, 1, attrs)
	s.revenue.Add(ctx, req.Total, attrs)

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, &ReadBackError{OrderID: id, Err: err}
	}
	return o, nil
}

// GetOrder returns a single order with its items.
func (s *Service) GetOrder(ctx context.Context, id int64) (*Order, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "get order", Err: err}
	}
	return o, nil
}

// ListOrders returns the orders matching f along with their count and the
// sum of their totals.
func (s *Service) ListOrders(ctx context.Context, f Filter) (*List, error) {
	orders, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, &StorageError{Op: "list orders", Err: err}
	}

	list := &List{
		Orders: orders,
		Count:  len(orders),
	}
	if list.Orders == nil {
		list.Orders = []Order{}
	}
	for _, o := range orders {
		list.TotalRevenue += o.Total
	}
	return list, nil
}

func validate(req CreateOrderRequest) error {
	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	if req.Total <= 0 {
		return ErrInvalidTotal
	}
	if req.UserID <= 0 {
		return ErrInvalidUser
	}
	for i, item := range req.Items {
		var reason string
		switch {
		case item.MenuID <= 0:
			reason = "menu id must be positive"
		case strings.TrimSpace(item.Name) == "":
			reason = "name is required"
		case item.Price < 0:
			reason = "price must not be negative"
		case item.Quantity <= 0:
			reason = "quantity must be greater than 0"
		case item.Quantity > MaxQuantity:
			reason = fmt.Sprintf("quantity must not exceed %d", MaxQuantity)
		case item.Price > 0 && int64(item.Quantity) > math.MaxInt64/item.Price:
			reason = "subtotal overflows"
		}
		if reason != "" {
			return &InvalidItemError{Index: i, MenuID: item.MenuID, Reason: reason}
		}
	}
	return nil
}
