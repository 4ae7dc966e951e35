// Command seed-db creates the point-of-sale accounts and, optionally, demo
// orders placed through the order service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/pos-ledger/internal/domain/order"
	"github.com/xenking/pos-ledger/internal/domain/user"
	"github.com/xenking/pos-ledger/internal/repository"
)

type seedFile struct {
	Users []struct {
		Username string `json:"username"`
		Name     string `json:"name"`
		Role     string `json:"role"`
	} `json:"users"`
	Menu []struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Price int64  `json:"price"`
	} `json:"menu"`
}

func main() {
	var (
		databaseURL string
		seedPath    string
		demoOrders  int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/seed.json", "path to users and menu JSON file")
	flag.IntVar(&demoOrders, "demo-orders", 0, "number of random orders to place")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedPath, demoOrders); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedPath string, demoOrders int) error {
	data, err := os.ReadFile(seedPath)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse seed file")
	}

	slog.Info("connecting to database")
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	users := repository.NewUserRepository(pool)
	var cashiers []int64
	for _, u := range seed.Users {
		id, err := users.Upsert(ctx, user.User{Username: u.Username, Name: u.Name, Role: u.Role})
		if err != nil {
			return err
		}
		if u.Role == user.RoleCashier {
			cashiers = append(cashiers, id)
		}
		slog.Info("upserted user", slog.Int64("id", id), slog.String("username", u.Username))
	}

	if demoOrders == 0 {
		return nil
	}
	if len(cashiers) == 0 || len(seed.Menu) == 0 {
		return errors.New("demo orders need at least one cashier and one menu item")
	}

	svc, err := order.NewService(
		repository.NewOrderRepository(pool, tracenoop.NewTracerProvider()),
		noop.NewMeterProvider(),
	)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	methods := []string{"cash", "qris", "debit"}
	for range demoOrders {
		req := order.CreateOrderRequest{
			UserID:        cashiers[rand.IntN(len(cashiers))],
			PaymentMethod: methods[rand.IntN(len(methods))],
		}
		for range 1 + rand.IntN(3) {
			m := seed.Menu[rand.IntN(len(seed.Menu))]
			item := order.CartItem{MenuID: m.ID, Name: m.Name, Price: m.Price, Quantity: 1 + rand.IntN(3)}
			req.Items = append(req.Items, item)
			req.Total += item.Subtotal()
		}

		o, err := svc.CreateOrder(ctx, req)
		if err != nil {
			return errors.Wrap(err, "place demo order")
		}
		slog.Info("placed demo order", slog.Int64("id", o.ID), slog.Int64("total", o.Total))
	}
	return nil
}
