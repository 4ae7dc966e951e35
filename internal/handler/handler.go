// Package handler exposes the order ledger over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/xenking/pos-ledger/internal/domain/order"
	"github.com/xenking/pos-ledger/internal/domain/stats"
)

// DefaultUserHeader carries the caller identity set by the upstream gateway.
const DefaultUserHeader = "X-User-ID"

// OrderService is the order writer and reader used by the handlers.
type OrderService interface {
	CreateOrder(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error)
	GetOrder(ctx context.Context, id int64) (*order.Order, error)
	ListOrders(ctx context.Context, f order.Filter) (*order.List, error)
}

// StatsService computes statistics reports.
type StatsService interface {
	GetStats(ctx context.Context, period stats.Period) (*stats.Report, error)
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// UserHeader names the request header holding the authenticated user id.
	// Defaults to DefaultUserHeader.
	UserHeader string
}

// Handler serves the /api/orders resource.
type Handler struct {
	orders     OrderService
	stats      StatsService
	userHeader string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg HandlerConfig, orders OrderService, stats StatsService) *Handler {
	header := cfg.UserHeader
	if header == "" {
		header = DefaultUserHeader
	}
	return &Handler{
		orders:     orders,
		stats:      stats,
		userHeader: header,
	}
}

// Routes returns the API routes. Every route requires a caller identity.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/orders", h.CreateOrder)
	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("GET /api/orders/stats", h.GetStats)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("/api/", func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found")
	})
	return h.requireUser(mux)
}
