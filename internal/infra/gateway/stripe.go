package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
	"github.com/stripe/stripe-go/v75/webhook"

	"donation-platform/internal/domain/billing"
)

const NameStripe = "stripe"

// Stripe settles on PaymentIntents tagged with metadata.order_id.
type Stripe struct {
	api            *client.API
	publishableKey string
	webhookSecret  string
}

// NewStripe builds a Stripe gateway. A nil backends uses Stripe's defaults.
func NewStripe(secretKey, publishableKey, webhookSecret string, backends *stripe.Backends) *Stripe {
	return &Stripe{
		api:            client.New(secretKey, backends),
		publishableKey: publishableKey,
		webhookSecret:  webhookSecret,
	}
}

func (g *Stripe) Name() string      { return NameStripe }
func (g *Stripe) PublicKey() string { return g.publishableKey }

func (g *Stripe) ParseWebhook(payload []byte, header http.Header) (*PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(
		payload,
		header.Get("Stripe-Signature"),
		g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: stripe webhook: %v", billing.ErrSignatureInvalid, err)
	}

	ev := &PaymentEvent{Gateway: NameStripe, EventType: string(event.Type), Status: StatusPending}
	switch string(event.Type) {
	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.canceled":
	default:
		return ev, nil
	}

	if event.Data == nil {
		return nil, fmt.Errorf("%w: stripe %s without data", billing.ErrInvalidInput, event.Type)
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("%w: stripe payment intent: %v", billing.ErrInvalidInput, err)
	}

	fillFromIntent(ev, &pi)
	if string(event.Type) == "payment_intent.payment_failed" {
		ev.Status = StatusFailed
	}
	if ev.OrderID == "" {
		return nil, fmt.Errorf("%w: payment intent %s has no order_id metadata", billing.ErrInvalidInput, pi.ID)
	}
	return ev, nil
}

// ConfirmCheckout looks the PaymentIntent up through the authenticated API;
// the reported amount is authoritative so the signature argument is unused.
func (g *Stripe) ConfirmCheckout(ctx context.Context, orderID, paymentID, _ string) (*PaymentEvent, error) {
	if orderID == "" || paymentID == "" {
		return nil, fmt.Errorf("%w: order_id and gateway_payment_id are required", billing.ErrInvalidInput)
	}

	pi, err := g.api.PaymentIntents.Get(paymentID, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.HTTPStatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: payment intent %s", billing.ErrSignatureInvalid, paymentID)
		}
		return nil, fmt.Errorf("fetch payment intent: %w", err)
	}
	if pi.Metadata["order_id"] != orderID {
		return nil, fmt.Errorf("%w: payment intent %s belongs to another order", billing.ErrSignatureInvalid, paymentID)
	}

	ev := &PaymentEvent{Gateway: NameStripe, EventType: "checkout.verified"}
	fillFromIntent(ev, pi)
	return ev, nil
}

func fillFromIntent(ev *PaymentEvent, pi *stripe.PaymentIntent) {
	ev.PaymentID = pi.ID
	ev.OrderID = pi.Metadata["order_id"]
	ev.Amount = pi.Amount
	ev.Currency = strings.ToUpper(string(pi.Currency))
	ev.Status = NormalizeStatus(string(pi.Status))
	if pi.LastPaymentError != nil {
		ev.FailureReason = pi.LastPaymentError.Msg
	}
}
