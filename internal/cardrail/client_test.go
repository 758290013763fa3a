package cardrail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elentis/reconcile/internal/config"
	"github.com/elentis/reconcile/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.CardRailConfig{
		SecretKey:         "sk_test_123",
		Currency:          "usd",
		BaseURL:           srv.URL,
		MaxNetworkRetries: 0,
		Decimals:          2,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestClient_Payout(t *testing.T) {
	t.Run("sends metadata and idempotency key", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "/v1/payouts", r.URL.Path)
			assert.Equal(t, "acct1-abc", r.Header.Get("Idempotency-Key"))
			assert.Equal(t, "5000", r.PostForm.Get("amount"))
			assert.Equal(t, "usd", r.PostForm.Get("currency"))
			assert.Equal(t, "ba_123", r.PostForm.Get("destination"))
			assert.Equal(t, "acct1-abc", r.PostForm.Get("metadata[orderId]"))
			assert.Equal(t, "acct1", r.PostForm.Get("metadata[accountId]"))
			writeJSON(w, http.StatusOK, map[string]any{"id": "po_1", "object": "payout", "status": "pending"})
		})

		id, err := c.Payout(context.Background(), "acct1-abc", "acct1", "ba_123", 5000)
		require.NoError(t, err)
		assert.Equal(t, "po_1", id)
	})

	t.Run("api error becomes a domain rejection", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{
				"type":    "invalid_request_error",
				"message": "No such external account",
			}})
		})

		_, err := c.Payout(context.Background(), "acct1-abc", "acct1", "ba_missing", 5000)
		assert.True(t, errors.Is(err, models.ErrDomainRejection))

		var railErr *models.RailError
		require.True(t, errors.As(err, &railErr))
		assert.Equal(t, http.StatusBadRequest, railErr.Code)
	})
}

func TestClient_Deposits(t *testing.T) {
	t.Run("customer carries the account id", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "/v1/customers", r.URL.Path)
			assert.Equal(t, "customer-acct1-ref", r.Header.Get("Idempotency-Key"))
			assert.Equal(t, "acct1", r.PostForm.Get("metadata[accountId]"))
			writeJSON(w, http.StatusOK, map[string]any{"id": "cus_1", "object": "customer"})
		})

		id, err := c.EnsureCustomer(context.Background(), "acct1", "acct1-ref")
		require.NoError(t, err)
		assert.Equal(t, "cus_1", id)
	})

	t.Run("payment intent", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "/v1/payment_intents", r.URL.Path)
			assert.Equal(t, "1000", r.PostForm.Get("amount"))
			assert.Equal(t, "cus_1", r.PostForm.Get("customer"))
			writeJSON(w, http.StatusOK, map[string]any{"id": "pi_1", "object": "payment_intent", "client_secret": "pi_1_secret"})
		})

		pi, err := c.CreatePaymentIntent(context.Background(), "cus_1", "acct1", 1000)
		require.NoError(t, err)
		assert.Equal(t, "pi_1", pi.ID)
		assert.Equal(t, "pi_1_secret", pi.ClientSecret)
	})
}

func TestValidateDestination(t *testing.T) {
	assert.NoError(t, ValidateDestination("ba_1Nx"))
	assert.NoError(t, ValidateDestination("card_1Nx"))
	assert.True(t, errors.Is(ValidateDestination("card_"), models.ErrInvalidDestination))
	assert.True(t, errors.Is(ValidateDestination("acct_1Nx"), models.ErrInvalidDestination))
	assert.True(t, errors.Is(ValidateDestination(""), models.ErrInvalidDestination))
}
