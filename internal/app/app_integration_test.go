//go:build integration

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/pos-ledger/internal/repository"
	"github.com/xenking/pos-ledger/pkg/health"
)

type apiResponse struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	Count        int             `json:"count"`
	TotalRevenue int64           `json:"total_revenue"`
	Data         json.RawMessage `json:"data"`
}

type apiClient struct {
	t       *testing.T
	baseURL string
}

func (c apiClient) do(method, path, userID string, body any) (int, apiResponse) {
	c.t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&payload).Encode(body))
	}
	req, err := http.NewRequest(method, c.baseURL+path, &payload)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer func() { _ = resp.Body.Close() }()

	var out apiResponse
	if strings.HasPrefix(path, "/api/") {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func setupServer(t *testing.T) apiClient {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx, cancel := context.WithCancel(zctx.Base(context.Background(), zaptest.NewLogger(t)))
	t.Cleanup(cancel)

	pgContainer, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("pos"),
		tcpostgres.WithUsername("pos"),
		tcpostgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(context.Background()) })

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := repository.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, repository.RunMigrations(ctx, pool))

	_, err = pool.Exec(ctx, `INSERT INTO users (username, name) VALUES ('kasir1', 'Kasir Satu')`)
	require.NoError(t, err)

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", time.Second, health.PingCheck(pool.Ping))
	healthSvc.SetReady(true)

	cfg := &Config{
		UserHeader: "X-User-ID",
		RateLimit:  RateLimitConfig{Max: 1000, Window: time.Minute},
		CORS:       CORSConfig{Origins: []string{"*"}},
	}
	h, err := newHandler(ctx, pool, healthSvc, tracenoop.NewTracerProvider(), noop.NewMeterProvider(), cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return apiClient{t: t, baseURL: srv.URL}
}

func TestAPI_OrderLifecycle(t *testing.T) {
	api := setupServer(t)

	code, _ := api.do(http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, code)

	code, resp := api.do(http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, resp.Success)

	code, resp = api.do(http.MethodPost, "/api/orders", "1", map[string]any{
		"items": []map[string]any{
			{"id": 1, "name": "Espresso", "price": 18000, "qty": 2},
			{"id": 2, "name": "Croissant", "price": 22000, "qty": 1},
		},
		"total":          58000,
		"payment_method": "qris",
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	assert.Equal(t, "Order created successfully", resp.Message)

	var created struct {
		ID          int64  `json:"id"`
		CashierName string `json:"cashier_name"`
		Items       []struct {
			MenuName string `json:"menu_name"`
			Subtotal int64  `json:"subtotal"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Equal(t, "Kasir Satu", created.CashierName)
	require.Len(t, created.Items, 2)
	assert.Equal(t, int64(36000), created.Items[0].Subtotal)

	code, resp = api.do(http.MethodPost, "/api/orders", "1", map[string]any{"items": []any{}, "total": 100})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, resp.Success)

	code, resp = api.do(http.MethodGet, "/api/orders?user_id=1", "1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, int64(58000), resp.TotalRevenue)

	code, _ = api.do(http.MethodGet, "/api/orders/999999", "1", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = api.do(http.MethodGet, "/api/orders/stats?period=day", "1", nil)
	require.Equal(t, http.StatusOK, code)

	var report struct {
		Period  string `json:"period"`
		Summary struct {
			TotalOrders  int64 `json:"total_orders"`
			TotalRevenue int64 `json:"total_revenue"`
		} `json:"summary"`
		BestSelling []struct {
			MenuName  string `json:"menu_name"`
			TotalSold int64  `json:"total_sold"`
		} `json:"best_selling"`
		PaymentMethods []struct {
			PaymentMethod string `json:"payment_method"`
			Count         int64  `json:"count"`
		} `json:"payment_methods"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.Equal(t, "day", report.Period)
	assert.Equal(t, int64(1), report.Summary.TotalOrders)
	assert.Equal(t, int64(58000), report.Summary.TotalRevenue)
	require.Len(t, report.BestSelling, 2)
	assert.Equal(t, "Espresso", report.BestSelling[0].MenuName)
	assert.Equal(t, int64(2), report.BestSelling[0].TotalSold)
	require.Len(t, report.PaymentMethods, 1)
	assert.Equal(t, "qris", report.PaymentMethods[0].PaymentMethod)
}
