package services

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresUnitOfWork runs a ledger transition and its balance delta in one
// database transaction. Any error rolls back both.
type PostgresUnitOfWork struct {
	db *sqlx.DB
}

func NewPostgresUnitOfWork(db *sqlx.DB) *PostgresUnitOfWork {
	return &PostgresUnitOfWork{db: db}
}

func (u *PostgresUnitOfWork) Do(ctx context.Context, fn func(Ledger, Balances) error) error {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(NewLedgerStore(tx), NewBalanceEngine(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
