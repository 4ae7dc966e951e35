package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Validation sentinels. They are returned before the ledger is touched.
var (
	ErrEmptyItems   = errors.New("order must contain at least one item")
	ErrInvalidTotal = errors.New("invalid total amount")
	ErrInvalidUser  = errors.New("invalid user")
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// InvalidItemError indicates a malformed cart entry.
type InvalidItemError struct {
	Index  int
	MenuID int64
	Reason string
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("item %d (menu %d): %s", e.Index, e.MenuID, e.Reason)
}

// InvalidFilterError indicates an unparsable listing filter value.
type InvalidFilterError struct {
	Field string
	Value string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

// StorageError wraps any ledger failure. Writes that fail with a StorageError
// have been rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ReadBackError is returned when an order was committed but could not be
// read back. The order exists; resubmitting the cart would duplicate it.
type ReadBackError struct {
	OrderID int64
	Err     error
}

func (e *ReadBackError) Error() string {
	return fmt.Sprintf("order %d committed, read back: %s", e.OrderID, e.Err)
}

func (e *ReadBackError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	if errors.Is(err, ErrEmptyItems) || errors.Is(err, ErrInvalidTotal) || errors.Is(err, ErrInvalidUser) {
		return true
	}
	var itemErr *InvalidItemError
	if errors.As(err, &itemErr) {
		return true
	}
	var filterErr *InvalidFilterError
	return errors.As(err, &filterErr)
}
