package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/elentis/reconcile/internal/models"
)

// BalanceEngine applies signed deltas with a single atomic statement per call.
// Debits are conditional on sufficient balance so concurrent withdrawals can
// never drive a balance negative.
type BalanceEngine struct {
	db sqlx.ExtContext
}

func NewBalanceEngine(db sqlx.ExtContext) *BalanceEngine {
	return &BalanceEngine{db: db}
}

func (b *BalanceEngine) ApplyDelta(ctx context.Context, accountID string, rail models.Rail, delta int64) (int64, error) {
	var balance int64
	var err error

	switch {
	case delta > 0:
		err = sqlx.GetContext(ctx, b.db, &balance, `
			INSERT INTO account_balances (account_id, rail, balance)
			VALUES ($1, $2, $3)
			ON CONFLICT (account_id, rail)
			DO UPDATE SET balance = account_balances.balance + EXCLUDED.balance, updated_at = NOW()
			RETURNING balance`,
			accountID, rail, delta)
	case delta < 0:
		err = sqlx.GetContext(ctx, b.db, &balance, `
			UPDATE account_balances SET balance = balance - $3, updated_at = NOW()
			WHERE account_id = $1 AND rail = $2 AND balance >= $3
			RETURNING balance`,
			accountID, rail, -delta)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, models.ErrInsufficientFunds
		}
	default:
		return b.Balance(ctx, accountID, rail)
	}

	if err != nil {
		return 0, fmt.Errorf("apply delta %d to %s/%s: %w", delta, accountID, rail, err)
	}
	return balance, nil
}

func (b *BalanceEngine) Balance(ctx context.Context, accountID string, rail models.Rail) (int64, error) {
	var balance int64
	err := sqlx.GetContext(ctx, b.db, &balance, `
		SELECT balance FROM account_balances WHERE account_id = $1 AND rail = $2`,
		accountID, rail)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("balance of %s/%s: %w", accountID, rail, err)
	}
	return balance, nil
}

// Balances reads both rail scalars for an account.
func (b *BalanceEngine) Balances(ctx context.Context, accountID string) (models.Balances, error) {
	var rows []struct {
		Rail    models.Rail `db:"rail"`
		Balance int64       `db:"balance"`
	}
	err := sqlx.SelectContext(ctx, b.db, &rows, `
		SELECT rail, balance FROM account_balances WHERE account_id = $1`, accountID)
	if err != nil {
		return models.Balances{}, fmt.Errorf("balances of %s: %w", accountID, err)
	}

	out := models.Balances{AccountID: accountID}
	for _, r := range rows {
		switch r.Rail {
		case models.RailAsset:
			out.Asset = r.Balance
		case models.RailCard:
			out.Card = r.Balance
		}
	}
	return out, nil
}
