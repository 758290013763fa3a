package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/elentis/reconcile/internal/assetrail"
	"github.com/elentis/reconcile/internal/cardrail"
	"github.com/elentis/reconcile/internal/models"
)

type WithdrawalRequest struct {
	AccountID   string
	Rail        models.Rail
	Destination string
	Memo        string
	Amount      int64 // minor units, excluding fee
}

type WithdrawalReceipt struct {
	EntryID int64              `json:"entryId"`
	OrderID string             `json:"orderId"`
	Status  models.EntryStatus `json:"status"`
	Amount  int64              `json:"amount"`
	Fee     int64              `json:"fee"`
}

// RequestWithdrawal debits amount+fee up front, then submits the withdrawal.
// A failed submission finalizes the entry as failed and credits the debit
// back; acceptance leaves the entry processing until a webhook resolves it.
func (s *ReconciliationService) RequestWithdrawal(ctx context.Context, req WithdrawalRequest) (*WithdrawalReceipt, error) {
	if !models.ValidAccountID(req.AccountID) {
		return nil, models.ErrInvalidReference
	}
	if err := validRail(req.Rail); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, models.ErrInvalidAmount
	}
	if err := s.validateDestination(req.Rail, req.Destination); err != nil {
		return nil, err
	}

	fee := s.fees.ComputeFee(withdrawalFeeKind(req.Rail), req.Amount)
	orderID := models.NewOrderID(req.AccountID)
	entry := &models.LedgerEntry{
		AccountID:       req.AccountID,
		Rail:            req.Rail,
		Kind:            models.KindWithdrawal,
		Direction:       models.DirectionDebit,
		ExternalOrderID: models.StringPtr(orderID),
		Destination:     req.Destination,
		Amount:          req.Amount,
		Fee:             fee,
		Status:          models.StatusPending,
	}
	log := s.log.WithFields(logrus.Fields{
		"account_id": req.AccountID,
		"order_id":   orderID,
		"rail":       req.Rail,
	})

	err := s.uow.Do(ctx, func(l Ledger, b Balances) error {
		if _, err := l.Open(ctx, entry); err != nil {
			return err
		}
		_, err := b.ApplyDelta(ctx, req.AccountID, req.Rail, -entry.Total())
		return err
	})
	if err != nil {
		if errors.Is(err, models.ErrInsufficientFunds) {
			log.WithFields(logrus.Fields{"amount": req.Amount, "fee": fee}).Info("withdrawal refused: insufficient funds")
		} else {
			log.WithError(err).Error("failed to open withdrawal")
		}
		return nil, err
	}
	s.audit.LogMutation(orderID, req.AccountID, -entry.Total(), string(models.StatusPending))

	// Once the debit is committed the withdrawal must run to a terminal or
	// processing state even if the caller goes away.
	railCtx := context.WithoutCancel(ctx)
	railID, err := s.submitWithdrawal(railCtx, req, orderID)
	if err != nil {
		log.WithError(err).Warn("withdrawal submission failed, reversing debit")
		s.reverseWithdrawal(railCtx, entry, err)
		return nil, err
	}

	receipt := &WithdrawalReceipt{
		EntryID: entry.ID,
		OrderID: orderID,
		Status:  models.StatusProcessing,
		Amount:  req.Amount,
		Fee:     fee,
	}
	moved, err := s.ledger.MarkProcessing(railCtx, req.Rail, orderID, railID)
	if err != nil {
		// The entry stays pending; the rail's webhook still finalizes it.
		log.WithError(err).Error("failed to mark withdrawal processing")
		receipt.Status = models.StatusPending
	} else if !moved {
		log.Info("withdrawal finalized before it was marked processing")
	}

	log.WithFields(logrus.Fields{"amount": req.Amount, "fee": fee}).Info("withdrawal accepted")
	return receipt, nil
}

// submitWithdrawal returns the rail's own id for the withdrawal, if it gave one.
func (s *ReconciliationService) submitWithdrawal(ctx context.Context, req WithdrawalRequest, orderID string) (string, error) {
	switch req.Rail {
	case models.RailAsset:
		res, err := s.asset.Withdraw(ctx, orderID, req.Destination, req.Memo, req.Amount)
		if err != nil {
			return "", err
		}
		return res.RecordID, nil
	default:
		return s.card.Payout(ctx, orderID, req.AccountID, req.Destination, req.Amount)
	}
}

// reverseWithdrawal is the compensating credit for a submission that failed.
// The failed terminal status is what records that the debit must not exist,
// so the credit only happens if this call wins the transition.
func (s *ReconciliationService) reverseWithdrawal(ctx context.Context, entry *models.LedgerEntry, cause error) {
	key := models.MatchKey{Rail: entry.Rail, OrderID: *entry.ExternalOrderID}
	res, err := s.finalize(ctx, models.FinalizeRequest{Key: key, Status: models.StatusFailed, Amount: entry.Amount},
		func(e models.LedgerEntry) int64 { return e.Total() })
	if err != nil {
		// Leaves a pending entry with its debit in place.
		s.log.WithFields(logrus.Fields{
			"account_id": entry.AccountID,
			"order_id":   key.OrderID,
		}).WithError(err).Error("withdrawal reversal failed")
		s.audit.LogError(key.OrderID, entry.AccountID, err)
		return
	}
	if res.Applied {
		s.audit.LogReversal(key.OrderID, entry.AccountID, res.Entry.Total(), cause.Error())
	}
}

func (s *ReconciliationService) validateDestination(rail models.Rail, destination string) error {
	if rail == models.RailCard {
		return cardrail.ValidateDestination(destination)
	}
	return assetrail.ValidateDestination(s.assetChain, destination)
}
