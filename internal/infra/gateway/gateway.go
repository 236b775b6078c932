// Package gateway verifies payment gateway callbacks and normalises them into
// PaymentEvents the settlement engine understands.
package gateway

import (
	"context"
	"net/http"
)

// PaymentEvent is a verified, gateway-neutral payment outcome.
type PaymentEvent struct {
	Gateway   string
	EventType string
	OrderID   string
	PaymentID string
	Status    Status
	// Amount in minor units; zero when the gateway did not report one.
	Amount   int64
	Currency string
	// AmountFromOrder marks events whose amount is bound by the order
	// signature rather than reported by the gateway.
	AmountFromOrder bool
	FailureReason   string
}

// Gateway is implemented by each supported payment provider.
type Gateway interface {
	Name() string
	// PublicKey is handed to clients to open the gateway checkout.
	PublicKey() string
	// ParseWebhook authenticates a raw webhook body and normalises it.
	// Authentication failures wrap billing.ErrSignatureInvalid.
	ParseWebhook(payload []byte, header http.Header) (*PaymentEvent, error)
	// ConfirmCheckout authenticates a client-side checkout confirmation.
	ConfirmCheckout(ctx context.Context, orderID, paymentID, signature string) (*PaymentEvent, error)
}
