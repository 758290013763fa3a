package webhook

import (
	"github.com/stripe/stripe-go/v76"
	stripewebhook "github.com/stripe/stripe-go/v76/webhook"

	"github.com/elentis/reconcile/internal/assetrail"
)

// AssetAuthenticator verifies asset-rail webhooks with the same canonical
// signature the outbound client uses.
type AssetAuthenticator struct {
	appID  string
	secret string
}

func NewAssetAuthenticator(appID, secret string) *AssetAuthenticator {
	return &AssetAuthenticator{appID: appID, secret: secret}
}

// Verify fails closed on a missing header or mismatched signature.
func (a *AssetAuthenticator) Verify(body []byte, signature, timestamp string) bool {
	return assetrail.Verify(a.appID, a.secret, timestamp, body, signature)
}

// CardSignatureHeader carries the card rail's webhook signature.
const CardSignatureHeader = "Stripe-Signature"

// CardAuthenticator verifies the card rail's signature header and decodes the
// event envelope in one step.
type CardAuthenticator struct {
	secret string
}

func NewCardAuthenticator(secret string) *CardAuthenticator {
	return &CardAuthenticator{secret: secret}
}

func (a *CardAuthenticator) Verify(body []byte, signatureHeader string) (stripe.Event, bool) {
	if signatureHeader == "" {
		return stripe.Event{}, false
	}
	event, err := stripewebhook.ConstructEventWithOptions(body, signatureHeader, a.secret,
		stripewebhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripe.Event{}, false
	}
	return event, true
}
