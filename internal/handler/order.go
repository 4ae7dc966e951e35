package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/pos-ledger/internal/domain/order"
)

// CreateOrder submits the cart in the request body as a new order owned by
// the caller and responds with the committed order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := UserIDFromContext(ctx)

	body, err := decodeCreateOrder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		zctx.From(ctx).Warn("Invalid order payload", zap.Error(err))
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	o, err := h.orders.CreateOrder(ctx, order.CreateOrderRequest{
		UserID:        userID,
		Items:         body.Items,
		Total:         body.Total,
		PaymentMethod: body.PaymentMethod,
	})
	var readErr *order.ReadBackError
	if errors.As(err, &readErr) {
		zctx.From(ctx).Warn("Order committed but read back failed",
			zap.Int64("order_id", readErr.OrderID),
			zap.Error(readErr.Err),
		)
		writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
			e.FieldStart("message")
			e.Str("Order created successfully, details unavailable")
			e.FieldStart("data")
			e.ObjStart()
			e.FieldStart("id")
			e.Int64(readErr.OrderID)
			e.ObjEnd()
		})
		return
	}
	if err != nil {
		h.fail(w, r, "creating order", err,
			zap.Int("items", len(body.Items)),
			zap.Int64("total", body.Total),
		)
		return
	}

	zctx.From(ctx).Info("Order created",
		zap.Int64("order_id", o.ID),
		zap.Int("items", len(o.Items)),
		zap.Int64("total", o.Total),
		zap.String("payment_method", o.PaymentMethod),
	)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.FieldStart("message")
		e.Str("Order created successfully")
		e.FieldStart("data")
		EncodeOrder(e, o)
	})
}

// ListOrders returns orders filtered by start_date, end_date and user_id,
// together with their count and total revenue.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		h.fail(w, r, "fetching orders", err)
		return
	}

	list, err := h.orders.ListOrders(r.Context(), f)
	if err != nil {
		h.fail(w, r, "fetching orders", err, zap.Int64("filter_user_id", f.UserID))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("count")
		e.Int(list.Count)
		e.FieldStart("total_revenue")
		e.Int64(list.TotalRevenue)
		e.FieldStart("data")
		e.ArrStart()
		for i := range list.Orders {
			EncodeOrder(e, &list.Orders[i])
		}
		e.ArrEnd()
	})
}

// GetOrder returns a single order with its items.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.fail(w, r, "fetching order", order.ErrNotFound, zap.String("order_id", raw))
		return
	}

	o, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		h.fail(w, r, "fetching order", err, zap.Int64("order_id", id))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("data")
		EncodeOrder(e, o)
	})
}

const dateLayout = "2006-01-02"

// ParseFilter builds an order filter from listing query parameters. Dates are
// RFC 3339 timestamps or YYYY-MM-DD days in local time; a day-only end_date
// includes the whole day.
func ParseFilter(q url.Values) (order.Filter, error) {
	var (
		f   order.Filter
		err error
	)
	if v := q.Get("start_date"); v != "" {
		if f.DateFrom, err = parseDate(v, false); err != nil {
			return order.Filter{}, &order.InvalidFilterError{Field: "start_date", Value: v}
		}
	}
	if v := q.Get("end_date"); v != "" {
		if f.DateTo, err = parseDate(v, true); err != nil {
			return order.Filter{}, &order.InvalidFilterError{Field: "end_date", Value: v}
		}
	}
	if v := q.Get("user_id"); v != "" {
		f.UserID, err = strconv.ParseInt(v, 10, 64)
		if err != nil || f.UserID <= 0 {
			return order.Filter{}, &order.InvalidFilterError{Field: "user_id", Value: v}
		}
	}
	return f, nil
}

func parseDate(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	day, err := time.ParseInLocation(dateLayout, v, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		// Postgres timestamps have microsecond resolution.
		return day.AddDate(0, 0, 1).Add(-time.Microsecond), nil
	}
	return day, nil
}
