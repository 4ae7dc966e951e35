package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pos-ledger/internal/domain/user"
)

const upsertUserSQL = `INSERT INTO users (username, name, role)
	VALUES ($1, $2, $3)
	ON CONFLICT (username) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role
	RETURNING id`

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Upsert(ctx context.Context, u user.User) (int64, error) {
	role := u.Role
	if role == "" {
		role = user.RoleCashier
	}
	var id int64
	if err := r.pool.QueryRow(ctx, upsertUserSQL, u.Username, u.Name, role).Scan(&id); err != nil {
		return 0, errors.Wrapf(err, "upsert user %q", u.Username)
	}
	return id, nil
}
