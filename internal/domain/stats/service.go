package stats

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xenking/pos-ledger/internal/domain/order"
)

// Service builds statistics reports.
type Service struct {
	repo Repository
	now  func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used to derive reporting windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a stats Service backed by repo.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetStats computes the summary, best sellers and payment method breakdown
// for period. The sub-reports are queried concurrently.
func (s *Service) GetStats(ctx context.Context, period Period) (*Report, error) {
	period = ParsePeriod(string(period))
	report := &Report{
		Period: period,
		Window: period.Window(s.now()),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.repo.Summary(gctx, report.Window)
		if err != nil {
			return &order.StorageError{Op: "stats summary", Err: err}
		}
		report.Summary = summary
		return nil
	})
	g.Go(func() error {
		best, err := s.repo.BestSelling(gctx, report.Window, BestSellingLimit)
		if err != nil {
			return &order.StorageError{Op: "stats best selling", Err: err}
		}
		report.BestSelling = best
		return nil
	})
	g.Go(func() error {
		methods, err := s.repo.PaymentMethods(gctx, report.Window)
		if err != nil {
			return &order.StorageError{Op: "stats payment methods", Err: err}
		}
		report.PaymentMethods = methods
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if report.BestSelling == nil {
		report.BestSelling = []ItemSales{}
	}
	if report.PaymentMethods == nil {
		report.PaymentMethods = []PaymentMethodUsage{}
	}
	return report, nil
}
