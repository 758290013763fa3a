package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/elentis/reconcile/internal/cardrail"
	"github.com/elentis/reconcile/internal/models"
)

// IssueDepositTarget returns the account's deposit target on rail, minting
// and persisting one on first use. Repeated calls return the same binding.
func (s *ReconciliationService) IssueDepositTarget(ctx context.Context, accountID string, rail models.Rail) (*models.DepositBinding, error) {
	if !models.ValidAccountID(accountID) {
		return nil, models.ErrInvalidReference
	}
	if err := validRail(rail); err != nil {
		return nil, err
	}

	if b, ok := s.cache.Get(ctx, accountID, rail); ok {
		return b, nil
	}

	existing, err := s.bindings.Find(ctx, accountID, rail)
	if err == nil {
		s.cache.Set(ctx, existing)
		return existing, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	ref := models.DepositReference(accountID, rail)
	minted := &models.DepositBinding{AccountID: accountID, Rail: rail, ReferenceID: ref}
	switch rail {
	case models.RailAsset:
		addr, err := s.asset.DepositAddress(ctx, ref)
		if err != nil {
			return nil, err
		}
		minted.Address, minted.Memo = addr.Address, addr.Memo
	case models.RailCard:
		customerID, err := s.card.EnsureCustomer(ctx, accountID, ref)
		if err != nil {
			return nil, err
		}
		minted.Address = customerID
	}

	stored, err := s.bindings.Save(ctx, minted)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, stored)

	s.log.WithFields(logrus.Fields{"account_id": accountID, "rail": rail}).Info("deposit target issued")
	s.audit.LogOperation(ref, accountID, "DEPOSIT_TARGET_ISSUED", string(rail))
	return stored, nil
}

// CreateCardDeposit starts a card payment into the account's card balance.
// The balance only moves when the rail reports the intent succeeded.
func (s *ReconciliationService) CreateCardDeposit(ctx context.Context, accountID string, amount int64) (*cardrail.PaymentIntent, error) {
	if amount <= 0 {
		return nil, models.ErrInvalidAmount
	}
	binding, err := s.IssueDepositTarget(ctx, accountID, models.RailCard)
	if err != nil {
		return nil, err
	}
	return s.card.CreatePaymentIntent(ctx, binding.Address, accountID, amount)
}
