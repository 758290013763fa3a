package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/elentis/reconcile/internal/models"
)

const entryColumns = `id, account_id, rail, kind, direction, external_record_id, external_order_id,
	destination, amount, fee, currency, status, created_at, updated_at`

// LedgerStore persists ledger entries. TryFinalize is the only idempotency
// gate: each terminal transition is a single conditional statement keyed on a
// unique index, never a read followed by a write.
type LedgerStore struct {
	db sqlx.ExtContext
}

func NewLedgerStore(db sqlx.ExtContext) *LedgerStore {
	return &LedgerStore{db: db}
}

// Open inserts a non-terminal entry and sets entry.ID.
func (s *LedgerStore) Open(ctx context.Context, entry *models.LedgerEntry) (int64, error) {
	if entry.Status.Terminal() {
		return 0, fmt.Errorf("open entry in terminal status %s", entry.Status)
	}
	err := sqlx.GetContext(ctx, s.db, entry, `
		INSERT INTO ledger_entries (account_id, rail, kind, direction, external_record_id, external_order_id,
			destination, amount, fee, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+entryColumns,
		entry.AccountID, entry.Rail, entry.Kind, entry.Direction, entry.ExternalRecordID, entry.ExternalOrderID,
		entry.Destination, entry.Amount, entry.Fee, entry.Currency, entry.Status)
	if err != nil {
		return 0, fmt.Errorf("open ledger entry: %w", err)
	}
	return entry.ID, nil
}

// TryFinalize moves the entry behind req.Key into a terminal status.
//
// Record keys (deposits, internal events) have no prior entry: the terminal
// entry is inserted and a conflict on (rail, external_record_id) means the
// event was already applied. Order keys (withdrawals) transition an existing
// pending or processing entry; a terminal or missing entry means not applied.
func (s *LedgerStore) TryFinalize(ctx context.Context, req models.FinalizeRequest) (models.FinalizeResult, error) {
	if !req.Status.Terminal() {
		return models.FinalizeResult{}, fmt.Errorf("finalize into non-terminal status %s", req.Status)
	}
	if req.Key.ByOrder() {
		return s.finalizeOrder(ctx, req)
	}
	return s.finalizeRecord(ctx, req)
}

func (s *LedgerStore) finalizeRecord(ctx context.Context, req models.FinalizeRequest) (models.FinalizeResult, error) {
	if req.Entry == nil || req.Key.RecordID == "" {
		return models.FinalizeResult{}, fmt.Errorf("finalize %s: missing entry template", req.Key)
	}
	e := *req.Entry
	e.Rail = req.Key.Rail
	e.ExternalRecordID = &req.Key.RecordID
	e.Status = req.Status
	e.Amount = req.Amount

	err := sqlx.GetContext(ctx, s.db, &e, `
		INSERT INTO ledger_entries (account_id, rail, kind, direction, external_record_id, external_order_id,
			destination, amount, fee, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (rail, external_record_id) DO NOTHING
		RETURNING `+entryColumns,
		e.AccountID, e.Rail, e.Kind, e.Direction, e.ExternalRecordID, e.ExternalOrderID,
		e.Destination, e.Amount, e.Fee, e.Currency, e.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FinalizeResult{Applied: false}, nil
	}
	if err != nil {
		return models.FinalizeResult{}, fmt.Errorf("finalize %s: %w", req.Key, err)
	}
	return models.FinalizeResult{Applied: true, Entry: e}, nil
}

func (s *LedgerStore) finalizeOrder(ctx context.Context, req models.FinalizeRequest) (models.FinalizeResult, error) {
	var e models.LedgerEntry
	err := sqlx.GetContext(ctx, s.db, &e, `
		UPDATE ledger_entries SET status = $1, external_record_id = COALESCE(external_record_id, $4), updated_at = NOW()
		WHERE rail = $2 AND external_order_id = $3 AND status IN ('pending', 'processing')
		RETURNING `+entryColumns,
		req.Status, req.Key.Rail, req.Key.OrderID, models.StringPtr(req.Key.RecordID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.FinalizeResult{Applied: false}, nil
	}
	if err != nil {
		return models.FinalizeResult{}, fmt.Errorf("finalize %s: %w", req.Key, err)
	}
	return models.FinalizeResult{Applied: true, Entry: e}, nil
}

// MarkProcessing records that the rail accepted a withdrawal under recordID,
// which may be empty when the rail did not return one. It is a no-op when a
// webhook already finalized the entry.
func (s *LedgerStore) MarkProcessing(ctx context.Context, rail models.Rail, orderID, recordID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE ledger_entries SET status = 'processing', external_record_id = COALESCE(external_record_id, $3), updated_at = NOW()
		WHERE rail = $1 AND external_order_id = $2 AND status = 'pending'`,
		rail, orderID, models.StringPtr(recordID))
	if err != nil {
		return false, fmt.Errorf("mark %s processing: %w", orderID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected == 1, nil
}

// History returns the account's entries, newest first.
func (s *LedgerStore) History(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	entries := []models.LedgerEntry{}
	err := sqlx.SelectContext(ctx, s.db, &entries, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", accountID, err)
	}
	return entries, nil
}
