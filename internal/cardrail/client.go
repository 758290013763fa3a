package cardrail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/elentis/reconcile/internal/config"
	"github.com/elentis/reconcile/internal/models"
)

const (
	MetadataAccountID = "accountId"
	MetadataOrderID   = "orderId"
)

type PaymentIntent struct {
	ID           string `json:"paymentIntentId"`
	ClientSecret string `json:"clientSecret"`
}

// Client wraps the card/bank rail API. Every mutating call carries an
// idempotency key so that the rail's own network retries are safe.
type Client struct {
	api      *client.API
	currency string
	decimals int32
	log      *logrus.Entry
}

func NewClient(cfg config.CardRailConfig) *Client {
	backendCfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
		LeveledLogger:     logrus.StandardLogger(),
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(cfg.BaseURL)
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	})

	return &Client{
		api:      api,
		currency: cfg.Currency,
		decimals: cfg.Decimals,
		log:      logrus.WithField("component", "cardrail"),
	}
}

// EnsureCustomer creates the customer that card deposits for accountID are
// attached to. referenceID doubles as the idempotency key.
func (c *Client) EnsureCustomer(ctx context.Context, accountID, referenceID string) (string, error) {
	params := &stripe.CustomerParams{
		Description: stripe.String("account " + accountID),
	}
	params.Context = ctx
	params.SetIdempotencyKey("customer-" + referenceID)
	params.AddMetadata(MetadataAccountID, accountID)

	cust, err := c.api.Customers.New(params)
	if err != nil {
		return "", c.translate(err, "create customer")
	}
	return cust.ID, nil
}

// CreatePaymentIntent starts a card deposit of amount minor units. No ledger
// entry exists until the rail reports the intent's outcome.
func (c *Client) CreatePaymentIntent(ctx context.Context, customerID, accountID string, amount int64) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(c.currency),
		Customer: stripe.String(customerID),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataAccountID, accountID)

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, c.translate(err, "create payment intent")
	}
	return &PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// Payout sends amount minor units to destination. orderID is the idempotency
// key and travels in metadata for webhook matching.
func (c *Client) Payout(ctx context.Context, orderID, accountID, destination string, amount int64) (string, error) {
	params := &stripe.PayoutParams{
		Amount:      stripe.Int64(amount),
		Currency:    stripe.String(c.currency),
		Destination: stripe.String(destination),
	}
	params.Context = ctx
	params.SetIdempotencyKey(orderID)
	params.AddMetadata(MetadataOrderID, orderID)
	params.AddMetadata(MetadataAccountID, accountID)

	po, err := c.api.Payouts.New(params)
	if err != nil {
		return "", c.translate(err, "create payout")
	}

	c.log.WithFields(logrus.Fields{
		"order_id":  orderID,
		"payout_id": po.ID,
		"status":    po.Status,
	}).Info("payout accepted")
	return po.ID, nil
}

func (c *Client) Decimals() int32 {
	return c.decimals
}

// translate maps rail errors onto the shared taxonomy.
func (c *Client) translate(err error, op string) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		c.log.WithFields(logrus.Fields{
			"op":     op,
			"type":   stripeErr.Type,
			"code":   stripeErr.Code,
			"status": stripeErr.HTTPStatusCode,
		}).Warn("card rail rejected request")
		return &models.RailError{Code: stripeErr.HTTPStatusCode, Msg: stripeErr.Msg}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: card rail %s: %v", models.ErrTransientNetwork, op, err)
	}
	return fmt.Errorf("card rail %s: %w", op, err)
}

// ValidateDestination accepts external bank account and card ids.
func ValidateDestination(destination string) error {
	for _, prefix := range []string{"ba_", "card_"} {
		if id, ok := strings.CutPrefix(destination, prefix); ok && id != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: expected a bank account or card id", models.ErrInvalidDestination)
}
