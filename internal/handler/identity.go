package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

type userIDKey struct{}

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey{}).(int64)
	return id, ok
}

// requireUser trusts the identity injected by the gateway in the configured
// header. Credentials are never checked here.
func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(h.userHeader)
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			zctx.From(r.Context()).Warn("Missing caller identity",
				zap.String("header", h.userHeader),
				zap.String("path", r.URL.Path),
			)
			writeMessage(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		ctx := zctx.With(WithUserID(r.Context(), id), zap.Int64("user_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
