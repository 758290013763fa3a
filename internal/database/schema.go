package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id BIGSERIAL PRIMARY KEY,
		account_id VARCHAR(24) NOT NULL,
		rail VARCHAR(16) NOT NULL,
		kind VARCHAR(16) NOT NULL,
		direction VARCHAR(8) NOT NULL CHECK (direction IN ('credit', 'debit')),
		external_record_id TEXT,
		external_order_id TEXT,
		destination TEXT NOT NULL DEFAULT '',
		amount BIGINT NOT NULL CHECK (amount >= 0),
		fee BIGINT NOT NULL DEFAULT 0 CHECK (fee >= 0),
		currency VARCHAR(16) NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL CHECK (status IN ('pending', 'processing', 'completed', 'failed')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (rail, external_record_id),
		UNIQUE (rail, external_order_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_account ON ledger_entries (account_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS account_balances (
		account_id VARCHAR(24) NOT NULL,
		rail VARCHAR(16) NOT NULL,
		balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (account_id, rail)
	)`,
	`CREATE TABLE IF NOT EXISTS deposit_bindings (
		account_id VARCHAR(24) NOT NULL,
		rail VARCHAR(16) NOT NULL,
		reference_id TEXT NOT NULL,
		address TEXT NOT NULL,
		memo TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (account_id, rail)
	)`,
}

// Migrate creates the ledger tables if they do not exist.
func Migrate(db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i, err)
		}
	}
	return nil
}
