package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/pos-ledger/internal/domain/order"
)

// fail logs err and maps it to a response. Validation errors are echoed to
// the client; storage failure details are only logged.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error, fields ...zap.Field) {
	lg := zctx.From(r.Context()).With(zap.String("op", op))

	switch {
	case order.IsValidation(err):
		lg.Warn("Rejected request", append(fields, zap.Error(err))...)
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound):
		lg.Info("Order not found", fields...)
		writeMessage(w, http.StatusNotFound, "Order not found")
	default:
		lg.Error("Request failed", append(fields, zap.Error(err))...)
		writeMessage(w, http.StatusInternalServerError, "Server error "+op)
	}
}
