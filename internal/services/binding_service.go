package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/elentis/reconcile/internal/models"
)

type BindingStore struct {
	db sqlx.ExtContext
}

func NewBindingStore(db sqlx.ExtContext) *BindingStore {
	return &BindingStore{db: db}
}

func (s *BindingStore) Find(ctx context.Context, accountID string, rail models.Rail) (*models.DepositBinding, error) {
	var b models.DepositBinding
	err := sqlx.GetContext(ctx, s.db, &b, `
		SELECT account_id, rail, reference_id, address, memo, created_at
		FROM deposit_bindings WHERE account_id = $1 AND rail = $2`,
		accountID, rail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find binding %s/%s: %w", accountID, rail, err)
	}
	return &b, nil
}

// Save stores b unless a binding already exists, and returns whichever row
// is persisted. Concurrent first requests converge on the same binding.
func (s *BindingStore) Save(ctx context.Context, b *models.DepositBinding) (*models.DepositBinding, error) {
	var stored models.DepositBinding
	err := sqlx.GetContext(ctx, s.db, &stored, `
		INSERT INTO deposit_bindings (account_id, rail, reference_id, address, memo)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id, rail) DO UPDATE SET rail = deposit_bindings.rail
		RETURNING account_id, rail, reference_id, address, memo, created_at`,
		b.AccountID, b.Rail, b.ReferenceID, b.Address, b.Memo)
	if err != nil {
		return nil, fmt.Errorf("save binding %s/%s: %w", b.AccountID, b.Rail, err)
	}
	return &stored, nil
}
