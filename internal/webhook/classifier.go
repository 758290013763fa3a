package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"

	"github.com/elentis/reconcile/internal/cardrail"
	"github.com/elentis/reconcile/internal/models"
)

const (
	AssetTypeDeposit    = "DirectDeposit"
	AssetTypeWithdrawal = "ApiWithdrawal"

	assetStatusSuccess = "Success"
	assetStatusFailed  = "Failed"
)

type assetEnvelope struct {
	Type string          `json:"type"`
	Msg  json.RawMessage `json:"msg"`
}

type assetMessage struct {
	RecordID    string          `json:"recordId"`
	ReferenceID string          `json:"referenceId"`
	OrderID     string          `json:"orderId"`
	CoinID      json.RawMessage `json:"coinId"`
	CoinSymbol  string          `json:"coinSymbol"`
	Chain       string          `json:"chain"`
	Status      string          `json:"status"`
	Amount      string          `json:"amount"`
}

// ClassifyAsset maps an asset-rail webhook body to a domain event. Unknown
// types come back as EventIgnored; malformed bodies are an error.
func ClassifyAsset(body []byte, decimals int32) (models.Event, error) {
	var env assetEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return models.Event{}, fmt.Errorf("decode webhook: %w", err)
	}

	// errors past this point keep rail and type so the rejection can be traced
	fail := func(err error) (models.Event, error) {
		return models.Event{Rail: models.RailAsset, Type: env.Type}, err
	}

	ev := models.Event{Rail: models.RailAsset, Type: env.Type, Kind: models.EventIgnored}
	switch env.Type {
	case AssetTypeDeposit:
		ev.Kind = models.EventDeposit
	case AssetTypeWithdrawal:
		ev.Kind = models.EventWithdrawal
	default:
		return ev, nil
	}

	var msg assetMessage
	if err := json.Unmarshal(env.Msg, &msg); err != nil {
		return fail(fmt.Errorf("decode %s msg: %w", env.Type, err))
	}

	ev.Status = msg.Status
	ev.Outcome = assetOutcome(msg.Status)
	ev.Currency = models.CurrencyMeta{
		CoinID: string(bytes.Trim(msg.CoinID, `"`)),
		Symbol: msg.CoinSymbol,
		Chain:  msg.Chain,
	}

	var ref string
	if ev.Kind == models.EventDeposit {
		if msg.RecordID == "" {
			return fail(fmt.Errorf("%s without recordId", env.Type))
		}
		ev.ExternalID = msg.RecordID
		ref = msg.ReferenceID
	} else {
		if msg.OrderID == "" {
			return fail(fmt.Errorf("%s without orderId", env.Type))
		}
		ev.ExternalID = msg.RecordID
		ev.OrderID = msg.OrderID
		ref = msg.OrderID
	}

	account, err := models.AccountFromReference(ref)
	if err != nil {
		return fail(fmt.Errorf("%s reference %q: %w", env.Type, ref, err))
	}
	ev.AccountRef = account

	// withdrawals settle against the amount held at request time
	if ev.Kind == models.EventDeposit && msg.Amount != "" {
		amount, err := models.ParseMinorUnits(msg.Amount, decimals)
		if err != nil {
			return fail(err)
		}
		ev.Amount = amount
	}
	return ev, nil
}

func assetOutcome(status string) models.Outcome {
	switch {
	case strings.EqualFold(status, assetStatusSuccess):
		return models.OutcomeSuccess
	case strings.EqualFold(status, assetStatusFailed):
		return models.OutcomeFailure
	default:
		return models.OutcomePending
	}
}

// ClassifyCard maps a verified card-rail event to a domain event.
func ClassifyCard(event stripe.Event) (models.Event, error) {
	fail := func(err error) (models.Event, error) {
		return models.Event{Rail: models.RailCard, Type: string(event.Type)}, err
	}

	ev := models.Event{Rail: models.RailCard, Type: string(event.Type), Kind: models.EventIgnored}
	if event.Data == nil {
		return ev, nil
	}

	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.canceled", "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return fail(fmt.Errorf("decode payment intent: %w", err))
		}
		ev.Kind = models.EventDeposit
		ev.ExternalID = pi.ID
		ev.Status = string(pi.Status)
		ev.Currency = models.CurrencyMeta{Currency: string(pi.Currency)}
		ev.Amount = pi.AmountReceived
		if ev.Amount == 0 {
			ev.Amount = pi.Amount
		}
		switch event.Type {
		case "payment_intent.succeeded":
			ev.Outcome = models.OutcomeSuccess
		case "payment_intent.canceled":
			ev.Outcome = models.OutcomeFailure
		default:
			// the customer may retry with another payment method
			ev.Outcome = models.OutcomePending
		}
		account := pi.Metadata[cardrail.MetadataAccountID]
		if !models.ValidAccountID(account) {
			return fail(fmt.Errorf("payment intent %s: %w", pi.ID, models.ErrInvalidReference))
		}
		ev.AccountRef = account

	case "payout.paid", "payout.failed", "payout.canceled":
		var po stripe.Payout
		if err := json.Unmarshal(event.Data.Raw, &po); err != nil {
			return fail(fmt.Errorf("decode payout: %w", err))
		}
		ev.Kind = models.EventWithdrawal
		ev.ExternalID = po.ID
		ev.OrderID = po.Metadata[cardrail.MetadataOrderID]
		ev.Status = string(po.Status)
		ev.Amount = po.Amount
		ev.Currency = models.CurrencyMeta{Currency: string(po.Currency)}
		if event.Type == "payout.paid" {
			ev.Outcome = models.OutcomeSuccess
		} else {
			ev.Outcome = models.OutcomeFailure
		}
		account, err := models.AccountFromReference(ev.OrderID)
		if err != nil {
			return fail(fmt.Errorf("payout %s: %w", po.ID, err))
		}
		if meta := po.Metadata[cardrail.MetadataAccountID]; meta != "" && meta != account {
			return fail(fmt.Errorf("payout %s account mismatch: %w", po.ID, models.ErrInvalidReference))
		}
		ev.AccountRef = account
	}
	return ev, nil
}
