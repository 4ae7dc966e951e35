package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/pos-ledger/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (user_id, total, payment_method, status)
		VALUES ($1, $2, $3, $4) RETURNING id`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, menu_id, menu_name, price, quantity, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)`

	// selectOrderViewSQL yields one row per item, or a single row with NULL
	// item columns for an order without items.
	selectOrderViewSQL = `SELECT o.id, o.user_id, COALESCE(u.username, ''), COALESCE(u.name, ''),
		o.total, o.payment_method, o.status, o.created_at,
		oi.id, oi.menu_id, oi.menu_name, oi.price, oi.quantity, oi.subtotal
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id
		LEFT JOIN order_items oi ON oi.order_id = o.id`

	getOrderSQL = selectOrderViewSQL + `
		WHERE o.id = @id
		ORDER BY oi.id`

	listOrdersSQL = selectOrderViewSQL + `
		WHERE (@date_from::timestamptz IS NULL OR o.created_at >= @date_from)
		  AND (@date_to::timestamptz IS NULL OR o.created_at <= @date_to)
		  AND (@user_id::bigint IS NULL OR o.user_id = @user_id)
		ORDER BY o.created_at DESC, o.id DESC, oi.id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool, tp trace.TracerProvider) *OrderRepository {
	return &OrderRepository{
		pool:   pool,
		tracer: tp.Tracer(tracerName),
	}
}

// Create inserts the order header and its items, in cart order, inside one
// transaction. Any failure rolls the whole transaction back.
func (r *OrderRepository) Create(ctx context.Context, o *order.NewOrder) (id int64, err error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Create",
		trace.WithAttributes(
			attribute.Int64("pos.user_id", o.UserID),
			attribute.Int("pos.items", len(o.Items)),
		),
	)
	defer span.End()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if err == nil {
			return
		}
		// The caller may have given up on ctx; the rollback must still run.
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = errors.Wrapf(err, "rollback failed: %v", rbErr)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "create order")
	}()

	if err := tx.QueryRow(ctx, insertOrderSQL,
		o.UserID, o.Total, o.PaymentMethod, o.Status,
	).Scan(&id); err != nil {
		return 0, errors.Wrap(err, "insert order")
	}

	for i, item := range o.Items {
		if _, err := tx.Exec(ctx, insertOrderItemSQL,
			id, item.MenuID, item.Name, item.Price, item.Quantity, item.Subtotal(),
		); err != nil {
			return 0, errors.Wrapf(err, "insert order item %d", i)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, "commit")
	}

	span.SetAttributes(attribute.Int64("pos.order_id", id))
	return id, nil
}

// GetByID returns the order with its items in insertion order.
// Returns order.ErrNotFound when no such order exists.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByID",
		trace.WithAttributes(attribute.Int64("pos.order_id", id)),
	)
	defer span.End()

	rows, err := r.pool.Query(ctx, getOrderSQL, pgx.NamedArgs{"id": id})
	if err != nil {
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	flat, err := pgx.CollectRows(rows, scanOrderRow)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %d", id)
	}

	orders := foldOrders(flat)
	if len(orders) == 0 {
		return nil, order.ErrNotFound
	}
	return &orders[0], nil
}

// List returns the orders matching f, most recent first, each with its items
// in insertion order.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	rows, err := r.pool.Query(ctx, listOrdersSQL, orderFilterArgs(f))
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	flat, err := pgx.CollectRows(rows, scanOrderRow)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	orders := foldOrders(flat)
	span.SetAttributes(attribute.Int("pos.orders", len(orders)))
	return orders, nil
}

// orderRow is one row of the order/user/item join.
type orderRow struct {
	OrderID       int64
	UserID        int64
	Username      string
	CashierName   string
	Total         int64
	PaymentMethod string
	Status        string
	CreatedAt     time.Time

	ItemID   *int64
	MenuID   *int64
	MenuName *string
	Price    *int64
	Quantity *int32
	Subtotal *int64
}

func scanOrderRow(row pgx.CollectableRow) (orderRow, error) {
	var r orderRow
	err := row.Scan(
		&r.OrderID, &r.UserID, &r.Username, &r.CashierName,
		&r.Total, &r.PaymentMethod, &r.Status, &r.CreatedAt,
		&r.ItemID, &r.MenuID, &r.MenuName, &r.Price, &r.Quantity, &r.Subtotal,
	)
	return r, err
}

// foldOrders nests consecutive rows of the same order into one order.Order.
// Rows must be grouped by order, which the ORDER BY clauses guarantee.
func foldOrders(rows []orderRow) []order.Order {
	orders := make([]order.Order, 0, len(rows))
	for _, r := range rows {
		if len(orders) == 0 || orders[len(orders)-1].ID != r.OrderID {
			orders = append(orders, order.Order{
				ID:            r.OrderID,
				UserID:        r.UserID,
				Username:      r.Username,
				CashierName:   r.CashierName,
				Total:         r.Total,
				PaymentMethod: r.PaymentMethod,
				Status:        r.Status,
				CreatedAt:     r.CreatedAt,
				Items:         []order.Item{},
			})
		}
		if r.ItemID == nil {
			continue
		}
		o := &orders[len(orders)-1]
		o.Items = append(o.Items, order.Item{
			ID:       *r.ItemID,
			OrderID:  r.OrderID,
			MenuID:   deref(r.MenuID),
			MenuName: deref(r.MenuName),
			Price:    deref(r.Price),
			Quantity: int(deref(r.Quantity)),
			Subtotal: deref(r.Subtotal),
		})
	}
	return orders
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
