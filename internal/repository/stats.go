package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/pos-ledger/internal/domain/stats"
)

const (
	summarySQL = `SELECT COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE (@since::timestamptz IS NULL OR created_at >= @since)`

	bestSellingSQL = `SELECT oi.menu_name, SUM(oi.quantity), SUM(oi.subtotal)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE (@since::timestamptz IS NULL OR o.created_at >= @since)
		GROUP BY oi.menu_name
		ORDER BY SUM(oi.quantity) DESC, oi.menu_name
		LIMIT @limit`

	paymentMethodsSQL = `SELECT payment_method, COUNT(*), SUM(total)
		FROM orders
		WHERE (@since::timestamptz IS NULL OR created_at >= @since)
		GROUP BY payment_method
		ORDER BY COUNT(*) DESC, payment_method`
)

var _ stats.Repository = (*StatsRepository)(nil)

// StatsRepository implements stats.Repository backed by PostgreSQL.
type StatsRepository struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewStatsRepository returns a StatsRepository that uses the given pool.
func NewStatsRepository(pool *pgxpool.Pool, tp trace.TracerProvider) *StatsRepository {
	return &StatsRepository{
		pool:   pool,
		tracer: tp.Tracer(tracerName),
	}
}

// Summary returns the order count and revenue within w.
func (r *StatsRepository) Summary(ctx context.Context, w stats.Window) (stats.Summary, error) {
	ctx, span := r.tracer.Start(ctx, "StatsRepository.Summary")
	defer span.End()

	var (
		s       stats.Summary
		revenue decimal.Decimal
	)
	if err := r.pool.QueryRow(ctx, summarySQL, windowArgs(w)).Scan(&s.TotalOrders, &revenue); err != nil {
		return stats.Summary{}, errors.Wrap(err, "query summary")
	}
	s.TotalRevenue = revenue.IntPart()
	return s, nil
}

// BestSelling returns up to limit item names ordered by quantity sold.
// Ties are broken by name.
func (r *StatsRepository) BestSelling(ctx context.Context, w stats.Window, limit int) ([]stats.ItemSales, error) {
	ctx, span := r.tracer.Start(ctx, "StatsRepository.BestSelling")
	defer span.End()

	args := windowArgs(w)
	args["limit"] = limit

	rows, err := r.pool.Query(ctx, bestSellingSQL, args)
	if err != nil {
		return nil, errors.Wrap(err, "query best selling")
	}
	items, err := pgx.CollectRows(rows, scanItemSales)
	if err != nil {
		return nil, errors.Wrap(err, "query best selling")
	}
	return items, nil
}

// PaymentMethods returns order count and revenue per payment method within w.
func (r *StatsRepository) PaymentMethods(ctx context.Context, w stats.Window) ([]stats.PaymentMethodUsage, error) {
	ctx, span := r.tracer.Start(ctx, "StatsRepository.PaymentMethods")
	defer span.End()

	rows, err := r.pool.Query(ctx, paymentMethodsSQL, windowArgs(w))
	if err != nil {
		return nil, errors.Wrap(err, "query payment methods")
	}
	methods, err := pgx.CollectRows(rows, scanPaymentMethodUsage)
	if err != nil {
		return nil, errors.Wrap(err, "query payment methods")
	}
	return methods, nil
}

func scanItemSales(row pgx.CollectableRow) (stats.ItemSales, error) {
	var (
		s       stats.ItemSales
		revenue decimal.Decimal
	)
	err := row.Scan(&s.MenuName, &s.TotalSold, &revenue)
	s.TotalRevenue = revenue.IntPart()
	return s, err
}

func scanPaymentMethodUsage(row pgx.CollectableRow) (stats.PaymentMethodUsage, error) {
	var (
		u       stats.PaymentMethodUsage
		revenue decimal.Decimal
	)
	err := row.Scan(&u.PaymentMethod, &u.Count, &revenue)
	u.Revenue = revenue.IntPart()
	return u, err
}
