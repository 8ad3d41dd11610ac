package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type Querier = sqlx.ExtContext

// RunInTx runs fn inside a transaction. When q is already a transaction fn
// joins it; otherwise a new one is started and committed if fn succeeds.
func RunInTx(ctx context.Context, q Querier, fn func(tx Querier) error) error {
	switch v := q.(type) {
	case *sqlx.Tx:
		return fn(v)
	case *sqlx.DB:
		tx, err := v.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing transaction: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported querier %T", q)
	}
}

// RunInReadTx runs a group of reads against one snapshot. PostgreSQL needs
// REPEATABLE READ for that; a SQLite transaction already reads a snapshot.
func RunInReadTx(ctx context.Context, database *sqlx.DB, fn func(tx Querier) error) error {
	var opts *sql.TxOptions
	if database.DriverName() == DriverPostgres {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}

	tx, err := database.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("beginning read transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing read transaction: %w", err)
	}
	return nil
}
