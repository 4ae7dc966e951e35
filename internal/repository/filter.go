package repository

import (
	"github.com/jackc/pgx/v5"

	"github.com/xenking/pos-ledger/internal/domain/order"
	"github.com/xenking/pos-ledger/internal/domain/stats"
)

// Optional predicates are written once in the SQL text as
// "(@arg IS NULL OR <predicate>)"; binding NULL disables a predicate. The SQL
// never changes shape, only its arguments do.

func orderFilterArgs(f order.Filter) pgx.NamedArgs {
	args := pgx.NamedArgs{
		"date_from": nil,
		"date_to":   nil,
		"user_id":   nil,
	}
	if !f.DateFrom.IsZero() {
		args["date_from"] = f.DateFrom
	}
	if !f.DateTo.IsZero() {
		args["date_to"] = f.DateTo
	}
	if f.UserID != 0 {
		args["user_id"] = f.UserID
	}
	return args
}

func windowArgs(w stats.Window) pgx.NamedArgs {
	args := pgx.NamedArgs{"since": nil}
	if w.Bounded() {
		args["since"] = w.Since
	}
	return args
}
