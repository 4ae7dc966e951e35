// Package stats computes time-windowed sales reports over committed orders.
package stats

import (
	"context"
	"time"
)

// Period selects the reporting window.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// BestSellingLimit is the number of items reported as best sellers.
const BestSellingLimit = 10

// ParsePeriod maps a period token to a Period. Unknown or empty tokens fall
// back to PeriodAll.
func ParsePeriod(s string) Period {
	switch p := Period(s); p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return p
	default:
		return PeriodAll
	}
}

// Window returns the reporting window of p relative to now. Windows are
// anchored at the start of the current day in now's location; month and year
// are fixed 30 and 365 day spans, not calendar units.
func (p Period) Window(now time.Time) Window {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch p {
	case PeriodDay:
		return Window{Since: today}
	case PeriodWeek:
		return Window{Since: today.AddDate(0, 0, -7)}
	case PeriodMonth:
		return Window{Since: today.AddDate(0, 0, -30)}
	case PeriodYear:
		return Window{Since: today.AddDate(0, 0, -365)}
	default:
		return Window{}
	}
}

// Window bounds aggregation queries. A zero Since means no lower bound.
type Window struct {
	Since time.Time
}

// Bounded reports whether the window has a lower bound.
func (w Window) Bounded() bool {
	return !w.Since.IsZero()
}

// Summary holds the order count and revenue within a window.
type Summary struct {
	TotalOrders  int64
	TotalRevenue int64
}

// ItemSales aggregates sales of a single menu item name.
type ItemSales struct {
	MenuName     string
	TotalSold    int64
	TotalRevenue int64
}

// PaymentMethodUsage aggregates orders paid with one payment method.
type PaymentMethodUsage struct {
	PaymentMethod string
	Count         int64
	Revenue       int64
}

// Report is the three-part statistics report.
type Report struct {
	Period         Period
	Window         Window
	Summary        Summary
	BestSelling    []ItemSales
	PaymentMethods []PaymentMethodUsage
}

// Repository runs the aggregation queries. The three queries are independent
// and need not observe the same snapshot.
type Repository interface {
	Summary(ctx context.Context, w Window) (Summary, error)
	BestSelling(ctx context.Context, w Window, limit int) ([]ItemSales, error)
	PaymentMethods(ctx context.Context, w Window) ([]PaymentMethodUsage, error)
}
