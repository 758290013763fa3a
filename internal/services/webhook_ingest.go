package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/elentis/reconcile/internal/assetrail"
	"github.com/elentis/reconcile/internal/models"
	"github.com/elentis/reconcile/internal/webhook"
)

type AckOutcome string

const (
	AckApplied   AckOutcome = "applied"
	AckDuplicate AckOutcome = "duplicate"
	AckDeferred  AckOutcome = "deferred"
	AckIgnored   AckOutcome = "ignored"
	AckRejected  AckOutcome = "rejected"
)

// Ack is what happened to a webhook. Every outcome is acknowledged to the
// rail; only a returned error withholds the acknowledgement.
type Ack struct {
	Outcome   AckOutcome
	Rail      models.Rail
	EventType string
	Reference string
	Reason    string
}

// IngestWebhook authenticates, classifies and applies a rail notification.
// It returns an error only when the ledger could not be updated, in which case
// the rail must redeliver.
func (s *ReconciliationService) IngestWebhook(ctx context.Context, rail models.Rail, body []byte, headers http.Header) (Ack, error) {
	ev, err := s.authenticate(rail, body, headers)
	if err != nil {
		return s.reject(rail, ev.Type, err), nil
	}

	ack := Ack{Rail: rail, EventType: ev.Type}
	if ev.Kind == models.EventIgnored {
		ack.Outcome = AckIgnored
		s.log.WithFields(logrus.Fields{"rail": rail, "type": ev.Type}).Debug("ignoring webhook")
		return ack, nil
	}

	ack.Reference = ev.MatchKey().String()
	log := s.log.WithFields(logrus.Fields{
		"rail":       rail,
		"type":       ev.Type,
		"account_id": ev.AccountRef,
		"record_id":  ev.ExternalID,
		"order_id":   ev.OrderID,
		"status":     ev.Status,
	})

	if ev.Outcome == models.OutcomePending {
		ack.Outcome = AckDeferred
		log.Info("non-terminal webhook deferred")
		return ack, nil
	}

	if ev.Kind == models.EventDeposit && ev.Amount == 0 && ev.Outcome == models.OutcomeSuccess {
		resolved, err := s.resolveDepositAmount(ctx, ev)
		if isRejection(err) {
			return s.reject(rail, ev.Type, err), nil
		}
		if err != nil {
			log.WithError(err).Error("deposit record lookup failed")
			return Ack{}, err
		}
		if resolved.Outcome == models.OutcomePending {
			ack.Outcome = AckDeferred
			log.Info("deposit record not settled, deferred")
			return ack, nil
		}
		ev = resolved
	}

	res, err := s.applyEvent(ctx, ev)
	if err != nil {
		log.WithError(err).Error("failed to apply webhook")
		s.audit.LogError(ack.Reference, ev.AccountRef, err)
		return Ack{}, err
	}

	if !res.Applied {
		ack.Outcome = AckDuplicate
		log.WithField("reason", models.ErrDuplicateEvent.Error()).Info("webhook already applied")
		return ack, nil
	}

	ack.Outcome = AckApplied
	log.WithField("amount", res.Entry.Amount).Info("webhook applied")
	return ack, nil
}

func (s *ReconciliationService) authenticate(rail models.Rail, body []byte, headers http.Header) (models.Event, error) {
	switch rail {
	case models.RailAsset:
		if !s.assetAuth.Verify(body, headers.Get(assetrail.HeaderSign), headers.Get(assetrail.HeaderTimestamp)) {
			return models.Event{}, models.ErrAuthentication
		}
		return webhook.ClassifyAsset(body, s.asset.Decimals())
	case models.RailCard:
		event, ok := s.cardAuth.Verify(body, headers.Get(webhook.CardSignatureHeader))
		if !ok {
			return models.Event{}, models.ErrAuthentication
		}
		return webhook.ClassifyCard(event)
	default:
		return models.Event{}, validRail(rail)
	}
}

// resolveDepositAmount fills in the amount of a deposit webhook that omitted
// it from the rail's deposit record.
func (s *ReconciliationService) resolveDepositAmount(ctx context.Context, ev models.Event) (models.Event, error) {
	if ev.Rail != models.RailAsset {
		return ev, fmt.Errorf("%w: deposit without amount", models.ErrInvalidAmount)
	}

	rec, err := s.asset.DepositRecord(ctx, ev.ExternalID)
	if err != nil {
		return ev, err
	}

	account, err := models.AccountFromReference(rec.ReferenceID)
	if err != nil || account != ev.AccountRef {
		return ev, fmt.Errorf("deposit record %s: %w", rec.RecordID, models.ErrInvalidReference)
	}
	if !strings.EqualFold(rec.Status, "Success") {
		ev.Outcome = models.OutcomePending
		return ev, nil
	}

	amount, err := models.ParseMinorUnits(rec.Amount, s.asset.Decimals())
	if err != nil {
		return ev, err
	}
	ev.Amount = amount
	if ev.Currency.Symbol == "" {
		ev.Currency.Symbol = rec.CoinSymbol
	}
	return ev, nil
}

// isRejection reports errors that mean the event itself is unusable, as
// opposed to a failure to process it.
func isRejection(err error) bool {
	return errors.Is(err, models.ErrInvalidReference) ||
		errors.Is(err, models.ErrInvalidAmount) ||
		errors.Is(err, models.ErrNotFound)
}

func (s *ReconciliationService) applyEvent(ctx context.Context, ev models.Event) (models.FinalizeResult, error) {
	req := models.FinalizeRequest{
		Key:    ev.MatchKey(),
		Status: ev.TerminalStatus(),
		Amount: ev.Amount,
	}

	if ev.Kind == models.EventDeposit {
		req.Entry = &models.LedgerEntry{
			AccountID: ev.AccountRef,
			Kind:      models.KindDeposit,
			Direction: models.DirectionCredit,
			Currency:  currencyCode(ev.Currency),
		}
		return s.finalize(ctx, req, func(e models.LedgerEntry) int64 {
			if e.Status == models.StatusCompleted {
				return e.Amount
			}
			return 0
		})
	}

	// Withdrawals were debited at request time; only a failure moves money.
	return s.finalize(ctx, req, func(e models.LedgerEntry) int64 {
		if e.Status == models.StatusFailed {
			return e.Total()
		}
		return 0
	})
}

func (s *ReconciliationService) reject(rail models.Rail, eventType string, reason error) Ack {
	s.log.WithFields(logrus.Fields{"rail": rail, "type": eventType}).
		WithError(reason).Warn("webhook rejected")
	s.audit.LogOperation("", "", "WEBHOOK_REJECTED", fmt.Sprintf("%s: %v", rail, reason))
	return Ack{Outcome: AckRejected, Rail: rail, EventType: eventType, Reason: reason.Error()}
}

func currencyCode(c models.CurrencyMeta) string {
	if c.Symbol != "" {
		return c.Symbol
	}
	return strings.ToUpper(c.Currency)
}
