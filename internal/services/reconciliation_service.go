package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/elentis/reconcile/internal/audit"
	"github.com/elentis/reconcile/internal/models"
	"github.com/elentis/reconcile/internal/webhook"
)

// Dependencies wires the reconciliation service. Cache and Events are optional.
type Dependencies struct {
	UnitOfWork UnitOfWork
	Ledger     Ledger
	Balances   Balances
	Bindings   Bindings
	Asset      AssetRail
	Card       CardRail
	AssetAuth  *webhook.AssetAuthenticator
	CardAuth   *webhook.CardAuthenticator
	Fees       *FeeCalculator
	Cache      BindingCache
	Events     EventPublisher
	Audit      *audit.Logger
	AssetChain string
}

// ReconciliationService is the only entry point into the ledger. Handlers and
// other subsystems go through it; nothing else mutates balances.
type ReconciliationService struct {
	uow        UnitOfWork
	ledger     Ledger
	balances   Balances
	bindings   Bindings
	asset      AssetRail
	card       CardRail
	assetAuth  *webhook.AssetAuthenticator
	cardAuth   *webhook.CardAuthenticator
	fees       *FeeCalculator
	cache      BindingCache
	events     EventPublisher
	audit      *audit.Logger
	assetChain string
	log        *logrus.Entry
}

func NewReconciliationService(d Dependencies) *ReconciliationService {
	if d.Cache == nil {
		d.Cache = NewRedisBindingCache(nil, 0)
	}
	if d.Events == nil {
		d.Events = NewRedisEventPublisher(nil)
	}
	if d.Audit == nil {
		d.Audit = audit.NewLogger(nil)
	}
	return &ReconciliationService{
		uow:        d.UnitOfWork,
		ledger:     d.Ledger,
		balances:   d.Balances,
		bindings:   d.Bindings,
		asset:      d.Asset,
		card:       d.Card,
		assetAuth:  d.AssetAuth,
		cardAuth:   d.CardAuth,
		fees:       d.Fees,
		cache:      d.Cache,
		events:     d.Events,
		audit:      d.Audit,
		assetChain: d.AssetChain,
		log:        logrus.WithField("component", "reconciliation"),
	}
}

// GetHistory is a read-only projection of the account's ledger.
func (s *ReconciliationService) GetHistory(ctx context.Context, accountID string) ([]models.HistoryItem, error) {
	if !models.ValidAccountID(accountID) {
		return nil, models.ErrInvalidReference
	}
	entries, err := s.ledger.History(ctx, accountID)
	if err != nil {
		return nil, err
	}
	items := make([]models.HistoryItem, 0, len(entries))
	for i := range entries {
		items = append(items, entries[i].HistoryItem())
	}
	return items, nil
}

func (s *ReconciliationService) GetBalance(ctx context.Context, accountID string) (models.Balances, error) {
	if !models.ValidAccountID(accountID) {
		return models.Balances{}, models.ErrInvalidReference
	}
	return s.balances.Balances(ctx, accountID)
}

// Decimals is the minor-unit precision amounts on rail are expressed in.
func (s *ReconciliationService) Decimals(rail models.Rail) int32 {
	if rail == models.RailCard {
		return s.card.Decimals()
	}
	return s.asset.Decimals()
}

// finalize runs the idempotency gate and, only when it applies, the balance
// delta chosen by effect, inside one unit of work.
func (s *ReconciliationService) finalize(ctx context.Context, req models.FinalizeRequest, effect func(models.LedgerEntry) int64) (models.FinalizeResult, error) {
	var result models.FinalizeResult
	var delta int64

	err := s.uow.Do(ctx, func(l Ledger, b Balances) error {
		res, err := l.TryFinalize(ctx, req)
		if err != nil {
			return err
		}
		delta = 0
		if res.Applied {
			delta = effect(res.Entry)
			if delta != 0 {
				if _, err := b.ApplyDelta(ctx, res.Entry.AccountID, res.Entry.Rail, delta); err != nil {
					return err
				}
			}
		}
		result = res
		return nil
	})
	if err != nil {
		return models.FinalizeResult{}, err
	}

	if result.Applied {
		e := result.Entry
		s.audit.LogMutation(req.Key.String(), e.AccountID, delta, string(e.Status))
		s.events.Publish(ctx, LedgerEvent{
			AccountID: e.AccountID,
			Rail:      e.Rail,
			Kind:      e.Kind,
			Direction: e.Direction,
			Status:    e.Status,
			Amount:    e.Amount,
			Fee:       e.Fee,
			Reference: req.Key.String(),
		})
	}
	return result, nil
}

func validRail(rail models.Rail) error {
	if !rail.Valid() {
		return fmt.Errorf("unknown rail %q", rail)
	}
	return nil
}
