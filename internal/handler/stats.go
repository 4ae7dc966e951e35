package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"github.com/xenking/pos-ledger/internal/domain/stats"
)

// GetStats returns the summary, best sellers and payment method breakdown for
// the period query parameter. Unknown periods report over all orders.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	period := stats.ParsePeriod(r.URL.Query().Get("period"))

	report, err := h.stats.GetStats(r.Context(), period)
	if err != nil {
		h.fail(w, r, "fetching statistics", err, zap.String("period", string(period)))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("data")
		encodeReport(e, report)
	})
}
