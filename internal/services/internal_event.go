package services

import (
	"context"

	"github.com/elentis/reconcile/internal/models"
)

const internalRecordPrefix = "internal:"

// ApplyInternalEvent credits (positive) or debits (negative) an account for an
// application event. eventID is the idempotency key; a repeat returns false.
// A debit larger than the balance fails with ErrInsufficientFunds and records
// nothing.
func (s *ReconciliationService) ApplyInternalEvent(ctx context.Context, accountID string, rail models.Rail, eventID string, signedAmount int64) (bool, error) {
	if !models.ValidAccountID(accountID) {
		return false, models.ErrInvalidReference
	}
	if err := validRail(rail); err != nil {
		return false, err
	}
	if eventID == "" || signedAmount == 0 {
		return false, models.ErrInvalidAmount
	}

	direction, amount := models.DirectionCredit, signedAmount
	if signedAmount < 0 {
		direction, amount = models.DirectionDebit, -signedAmount
	}

	res, err := s.finalize(ctx, models.FinalizeRequest{
		Key:    models.MatchKey{Rail: rail, RecordID: internalRecordPrefix + eventID},
		Status: models.StatusCompleted,
		Amount: amount,
		Entry: &models.LedgerEntry{
			AccountID: accountID,
			Kind:      models.KindInternal,
			Direction: direction,
		},
	}, func(models.LedgerEntry) int64 { return signedAmount })
	if err != nil {
		return false, err
	}
	return res.Applied, nil
}
