package store

import (
	"context"
	"time"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

const userColumns = `id::text AS id, email, password_hash, created_at`

// CreateUser inserts a user. A taken e-mail yields ErrUniqueViolation.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	return QueryOne[User](ctx, s.Pool,
		`INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING `+userColumns,
		email, passwordHash)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return QueryOne[User](ctx, s.Pool,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// UserExists reports whether a user with id exists. Malformed ids do not exist.
func (s *Store) UserExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id::text = $1)`, id).Scan(&exists)
	if err != nil {
		return false, MapError(err)
	}
	return exists, nil
}
