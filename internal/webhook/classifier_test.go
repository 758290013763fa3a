package webhook

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/elentis/reconcile/internal/models"
)

func TestClassifyAsset(t *testing.T) {
	t.Run("successful deposit", func(t *testing.T) {
		body := []byte(`{"type":"DirectDeposit","msg":{"recordId":"R1","referenceId":"acct1-x","coinId":1280,"coinSymbol":"USDT","status":"Success","amount":"10.00"}}`)

		ev, err := ClassifyAsset(body, 2)
		require.NoError(t, err)
		assert.Equal(t, models.EventDeposit, ev.Kind)
		assert.Equal(t, models.OutcomeSuccess, ev.Outcome)
		assert.Equal(t, "R1", ev.ExternalID)
		assert.Equal(t, "acct1", ev.AccountRef)
		assert.Equal(t, int64(1000), ev.Amount)
		assert.Equal(t, "1280", ev.Currency.CoinID)
		assert.Equal(t, models.MatchKey{Rail: models.RailAsset, RecordID: "R1"}, ev.MatchKey())
	})

	t.Run("deposit without amount", func(t *testing.T) {
		body := []byte(`{"type":"DirectDeposit","msg":{"recordId":"R1","referenceId":"acct1-x","status":"Success"}}`)

		ev, err := ClassifyAsset(body, 2)
		require.NoError(t, err)
		assert.Zero(t, ev.Amount)
	})

	t.Run("failed withdrawal", func(t *testing.T) {
		body := []byte(`{"type":"ApiWithdrawal","msg":{"orderId":"acct1-0123abcd","recordId":"W1","status":"Failed"}}`)

		ev, err := ClassifyAsset(body, 2)
		require.NoError(t, err)
		assert.Equal(t, models.EventWithdrawal, ev.Kind)
		assert.Equal(t, models.OutcomeFailure, ev.Outcome)
		assert.Equal(t, "acct1", ev.AccountRef)
		assert.Equal(t, models.MatchKey{Rail: models.RailAsset, OrderID: "acct1-0123abcd", RecordID: "W1"}, ev.MatchKey())
		assert.Equal(t, models.StatusFailed, ev.TerminalStatus())
	})

	t.Run("non-terminal status is pending", func(t *testing.T) {
		body := []byte(`{"type":"ApiWithdrawal","msg":{"orderId":"acct1-0123abcd","status":"Processing"}}`)

		ev, err := ClassifyAsset(body, 2)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomePending, ev.Outcome)
	})

	t.Run("withdrawal amount is not parsed", func(t *testing.T) {
		for _, amount := range []string{"0", "", "n/a"} {
			body := []byte(`{"type":"ApiWithdrawal","msg":{"orderId":"acct1-0123abcd","recordId":"W1","status":"Failed","amount":"` + amount + `"}}`)

			ev, err := ClassifyAsset(body, 2)
			require.NoError(t, err, amount)
			assert.Zero(t, ev.Amount)
			assert.Equal(t, models.OutcomeFailure, ev.Outcome)
		}
	})

	t.Run("errors keep the event type", func(t *testing.T) {
		ev, err := ClassifyAsset([]byte(`{"type":"DirectDeposit","msg":{"recordId":"R1","referenceId":"no_delimiter","status":"Success"}}`), 2)
		require.Error(t, err)
		assert.Equal(t, models.RailAsset, ev.Rail)
		assert.Equal(t, AssetTypeDeposit, ev.Type)
	})

	t.Run("unknown type is ignored", func(t *testing.T) {
		ev, err := ClassifyAsset([]byte(`{"type":"UserDeposit","msg":{}}`), 2)
		require.NoError(t, err)
		assert.Equal(t, models.EventIgnored, ev.Kind)
	})

	t.Run("malformed payloads", func(t *testing.T) {
		_, err := ClassifyAsset([]byte(`not json`), 2)
		assert.Error(t, err)

		_, err = ClassifyAsset([]byte(`{"type":"DirectDeposit","msg":{"referenceId":"acct1-x","status":"Success"}}`), 2)
		assert.Error(t, err)

		_, err = ClassifyAsset([]byte(`{"type":"DirectDeposit","msg":{"recordId":"R1","referenceId":"no_delimiter","status":"Success"}}`), 2)
		assert.True(t, errors.Is(err, models.ErrInvalidReference))

		_, err = ClassifyAsset([]byte(`{"type":"DirectDeposit","msg":{"recordId":"R1","referenceId":"acct1-x","status":"Success","amount":"-1"}}`), 2)
		assert.True(t, errors.Is(err, models.ErrInvalidAmount))
	})
}

func stripeEvent(t *testing.T, typ string, obj any) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(obj)
	require.NoError(t, err)
	return stripe.Event{ID: "evt_1", Type: stripe.EventType(typ), Data: &stripe.EventData{Raw: raw}}
}

func TestClassifyCard(t *testing.T) {
	t.Run("payment intent succeeded", func(t *testing.T) {
		ev, err := ClassifyCard(stripeEvent(t, "payment_intent.succeeded", map[string]any{
			"id": "pi_1", "object": "payment_intent", "amount": 1000, "amount_received": 1000,
			"currency": "usd", "status": "succeeded", "metadata": map[string]string{"accountId": "acct1"},
		}))
		require.NoError(t, err)
		assert.Equal(t, models.EventDeposit, ev.Kind)
		assert.Equal(t, models.OutcomeSuccess, ev.Outcome)
		assert.Equal(t, "pi_1", ev.ExternalID)
		assert.Equal(t, int64(1000), ev.Amount)
		assert.Equal(t, "acct1", ev.AccountRef)
	})

	t.Run("payment failure is deferred", func(t *testing.T) {
		ev, err := ClassifyCard(stripeEvent(t, "payment_intent.payment_failed", map[string]any{
			"id": "pi_1", "object": "payment_intent", "amount": 1000,
			"metadata": map[string]string{"accountId": "acct1"},
		}))
		require.NoError(t, err)
		assert.Equal(t, models.OutcomePending, ev.Outcome)
	})

	t.Run("payout failed matches on order id", func(t *testing.T) {
		ev, err := ClassifyCard(stripeEvent(t, "payout.failed", map[string]any{
			"id": "po_1", "object": "payout", "amount": 5000, "status": "failed",
			"metadata": map[string]string{"orderId": "acct1-abc", "accountId": "acct1"},
		}))
		require.NoError(t, err)
		assert.Equal(t, models.EventWithdrawal, ev.Kind)
		assert.Equal(t, models.OutcomeFailure, ev.Outcome)
		assert.Equal(t, models.MatchKey{Rail: models.RailCard, OrderID: "acct1-abc", RecordID: "po_1"}, ev.MatchKey())
	})

	t.Run("payout without order id is rejected", func(t *testing.T) {
		ev, err := ClassifyCard(stripeEvent(t, "payout.paid", map[string]any{"id": "po_1", "object": "payout"}))
		assert.True(t, errors.Is(err, models.ErrInvalidReference))
		assert.Equal(t, "payout.paid", ev.Type)
	})

	t.Run("payment intent without account is rejected", func(t *testing.T) {
		_, err := ClassifyCard(stripeEvent(t, "payment_intent.succeeded", map[string]any{"id": "pi_1", "object": "payment_intent"}))
		assert.True(t, errors.Is(err, models.ErrInvalidReference))
	})

	t.Run("unrelated event type", func(t *testing.T) {
		ev, err := ClassifyCard(stripeEvent(t, "customer.created", map[string]any{"id": "cus_1"}))
		require.NoError(t, err)
		assert.Equal(t, models.EventIgnored, ev.Kind)
	})
}
