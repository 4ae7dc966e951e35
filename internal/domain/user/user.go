// Package user describes the cashiers that own orders.
package user

import "context"

// Roles known to the point of sale.
const (
	RoleCashier = "cashier"
	RoleAdmin   = "admin"
)

// User is a point-of-sale account. Orders reference it by ID.
type User struct {
	ID       int64
	Username string
	Name     string
	Role     string
}

// Repository stores user accounts.
type Repository interface {
	// Upsert creates the user or updates name and role of the existing
	// username, returning its ID.
	Upsert(ctx context.Context, u User) (int64, error)
}
