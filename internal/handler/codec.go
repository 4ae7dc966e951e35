package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/pos-ledger/internal/domain/order"
	"github.com/xenking/pos-ledger/internal/domain/stats"
)

const maxBodyBytes = 1 << 20

// createOrderBody is the decoded POST /api/orders payload.
type createOrderBody struct {
	Items         []order.CartItem
	Total         int64
	PaymentMethod string
}

func decodeCreateOrder(r io.Reader) (*createOrderBody, error) {
	var body createOrderBody
	d := jx.Decode(r, 4096)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			if d.Next() == jx.Null {
				return d.Null()
			}
			return d.Arr(func(d *jx.Decoder) error {
				item, err := decodeCartItem(d)
				if err != nil {
					return err
				}
				body.Items = append(body.Items, item)
				return nil
			})
		case "total":
			v, err := optInt64(d)
			body.Total = v
			return wrapField(err, "total")
		case "payment_method":
			v, err := optStr(d)
			body.PaymentMethod = v
			return wrapField(err, "payment_method")
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	return &body, nil
}

func decodeCartItem(d *jx.Decoder) (order.CartItem, error) {
	var item order.CartItem
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			item.MenuID, err = optInt64(d)
		case "name":
			item.Name, err = optStr(d)
		case "price":
			item.Price, err = optInt64(d)
		case "qty", "quantity":
			var qty int64
			qty, err = optInt64(d)
			item.Quantity = int(qty)
		default:
			return d.Skip()
		}
		return wrapField(err, key)
	})
	return item, err
}

func wrapField(err error, field string) error {
	if err != nil {
		return errors.Wrapf(err, "field %q", field)
	}
	return nil
}

func optInt64(d *jx.Decoder) (int64, error) {
	if d.Next() == jx.Null {
		return 0, d.Null()
	}
	return d.Int64()
}

func optStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// EncodeOrder writes the JSON representation of o.
func EncodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(o.ID)
	e.FieldStart("user_id")
	e.Int64(o.UserID)
	e.FieldStart("username")
	e.Str(o.Username)
	e.FieldStart("cashier_name")
	e.Str(o.CashierName)
	e.FieldStart("total")
	e.Int64(o.Total)
	e.FieldStart("payment_method")
	e.Str(o.PaymentMethod)
	e.FieldStart("status")
	e.Str(o.Status)
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339Nano))
	e.FieldStart("items")
	e.ArrStart()
	for i := range o.Items {
		encodeItem(e, &o.Items[i])
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeItem(e *jx.Encoder, item *order.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(item.ID)
	e.FieldStart("menu_id")
	e.Int64(item.MenuID)
	e.FieldStart("menu_name")
	e.Str(item.MenuName)
	e.FieldStart("price")
	e.Int64(item.Price)
	e.FieldStart("quantity")
	e.Int(item.Quantity)
	e.FieldStart("subtotal")
	e.Int64(item.Subtotal)
	e.ObjEnd()
}

func encodeReport(e *jx.Encoder, report *stats.Report) {
	e.ObjStart()
	e.FieldStart("period")
	e.Str(string(report.Period))
	e.FieldStart("since")
	if report.Window.Bounded() {
		e.Str(report.Window.Since.UTC().Format(time.RFC3339))
	} else {
		e.Null()
	}

	e.FieldStart("summary")
	e.ObjStart()
	e.FieldStart("total_orders")
	e.Int64(report.Summary.TotalOrders)
	e.FieldStart("total_revenue")
	e.Int64(report.Summary.TotalRevenue)
	e.ObjEnd()

	e.FieldStart("best_selling")
	e.ArrStart()
	for _, s := range report.BestSelling {
		e.ObjStart()
		e.FieldStart("menu_name")
		e.Str(s.MenuName)
		e.FieldStart("total_sold")
		e.Int64(s.TotalSold)
		e.FieldStart("total_revenue")
		e.Int64(s.TotalRevenue)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("payment_methods")
	e.ArrStart()
	for _, m := range report.PaymentMethods {
		e.ObjStart()
		e.FieldStart("payment_method")
		e.Str(m.PaymentMethod)
		e.FieldStart("count")
		e.Int64(m.Count)
		e.FieldStart("revenue")
		e.Int64(m.Revenue)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

// writeJSON writes an envelope {"success": ..., <fields>} with the given status.
func writeJSON(w http.ResponseWriter, status int, fields func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(status < http.StatusBadRequest)
	if fields != nil {
		fields(e)
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status is already sent; a write error means the client went away.
	_, _ = w.Write(e.Bytes())
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.FieldStart("message")
		e.Str(message)
	})
}
