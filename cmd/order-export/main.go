// Command order-export writes orders matching a filter as gzip-compressed
// JSON Lines, one order with its items per line.
package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/pos-ledger/internal/domain/order"
	"github.com/xenking/pos-ledger/internal/handler"
	"github.com/xenking/pos-ledger/internal/repository"
)

func main() {
	var (
		databaseURL string
		startDate   string
		endDate     string
		userID      string
		out         string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&startDate, "start-date", "", "earliest order time, RFC 3339 or YYYY-MM-DD")
	flag.StringVar(&endDate, "end-date", "", "latest order time, RFC 3339 or YYYY-MM-DD (whole day)")
	flag.StringVar(&userID, "user-id", "", "only orders of this cashier")
	flag.StringVar(&out, "out", "orders.jsonl.gz", "output file, - for stdout")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	q := url.Values{}
	for key, v := range map[string]string{"start_date": startDate, "end_date": endDate, "user_id": userID} {
		if v != "" {
			q.Set(key, v)
		}
	}
	filter, err := handler.ParseFilter(q)
	if err != nil {
		slog.Error("invalid filter", slog.String("error", err.Error()))
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, filter, out); err != nil {
		slog.Error("order export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL string, filter order.Filter, out string) error {
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	svc, err := order.NewService(
		repository.NewOrderRepository(pool, tracenoop.NewTracerProvider()),
		noop.NewMeterProvider(),
	)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	list, err := svc.ListOrders(ctx, filter)
	if err != nil {
		return errors.Wrap(err, "list orders")
	}

	if out == "-" {
		if err := writeOrders(os.Stdout, list.Orders); err != nil {
			return errors.Wrap(err, "write orders")
		}
	} else {
		f, err := os.Create(out)
		if err != nil {
			return errors.Wrap(err, "create output file")
		}
		if err := writeOrdersAndClose(f, list.Orders); err != nil {
			return err
		}
	}

	slog.Info("orders exported",
		slog.Int("count", list.Count),
		slog.Int64("total_revenue", list.TotalRevenue),
		slog.String("out", out),
	)
	return nil
}

// writeOrdersAndClose writes orders to wc and closes it. A failed close
// means the file may be truncated and is reported.
func writeOrdersAndClose(wc io.WriteCloser, orders []order.Order) error {
	if err := writeOrders(wc, orders); err != nil {
		_ = wc.Close()
		return errors.Wrap(err, "write orders")
	}
	if err := wc.Close(); err != nil {
		return errors.Wrap(err, "close output file")
	}
	return nil
}

// writeOrders gzip-compresses orders as JSON Lines into w.
func writeOrders(w io.Writer, orders []order.Order) error {
	bw := bufio.NewWriter(w)
	zw := pgzip.NewWriter(bw)

	e := &jx.Encoder{}
	for i := range orders {
		e.Reset()
		handler.EncodeOrder(e, &orders[i])
		if _, err := zw.Write(append(e.Bytes(), '\n')); err != nil {
			return errors.Wrapf(err, "write order %d", orders[i].ID)
		}
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "close gzip")
	}
	return bw.Flush()
}
