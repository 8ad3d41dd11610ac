package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/model"
)

// CreateUser creates a new account.
func CreateUser(ctx context.Context, q db.Querier, username, passwordHash string) (*model.User, error) {
	u := &model.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	_, err := q.ExecContext(ctx, q.Rebind(
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`),
		u.ID, u.Username, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return nil, model.NewFieldError("username", model.ErrDuplicateName)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return u, nil
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, q db.Querier, id uuid.UUID) (*model.User, error) {
	var u model.User
	err := sqlx.GetContext(ctx, q, &u, q.Rebind(
		`SELECT id, username, password_hash, created_at FROM users WHERE id = ?`), id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

// GetUserByUsername returns a user by username.
func GetUserByUsername(ctx context.Context, q db.Querier, username string) (*model.User, error) {
	var u model.User
	err := sqlx.GetContext(ctx, q, &u, q.Rebind(
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`), username,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return &u, nil
}

// CountUsers returns the number of accounts.
func CountUsers(ctx context.Context, q db.Querier) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, q, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, q db.Querier, id uuid.UUID, passwordHash string) error {
	result, err := q.ExecContext(ctx, q.Rebind(
		`UPDATE users SET password_hash = ? WHERE id = ?`), passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return requireAffected(result, "updating user password")
}

// UpdateUsername renames an account.
func UpdateUsername(ctx context.Context, q db.Querier, id uuid.UUID, username string) error {
	result, err := q.ExecContext(ctx, q.Rebind(
		`UPDATE users SET username = ? WHERE id = ?`), username, id,
	)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return model.NewFieldError("username", model.ErrDuplicateName)
		}
		return fmt.Errorf("updating username: %w", err)
	}
	return requireAffected(result, "updating username")
}
