package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"donation-platform/internal/domain/billing"
)

const NameRazorpay = "razorpay"

// Razorpay verifies Razorpay-style HMAC-SHA256 signatures.
type Razorpay struct {
	keyID         string
	keySecret     string
	webhookSecret string
}

func NewRazorpay(keyID, keySecret, webhookSecret string) *Razorpay {
	return &Razorpay{keyID: keyID, keySecret: keySecret, webhookSecret: webhookSecret}
}

func (g *Razorpay) Name() string      { return NameRazorpay }
func (g *Razorpay) PublicKey() string { return g.keyID }

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity razorpayPayment `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity struct {
				ID         string `json:"id"`
				AmountPaid int64  `json:"amount_paid"`
				Currency   string `json:"currency"`
				Status     string `json:"status"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

type razorpayPayment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	ErrorDescription string `json:"error_description"`
}

// eventStatus pins the outcome for the events we settle on; the entity status
// is only consulted for anything else.
var eventStatus = map[string]string{
	"payment.captured": "captured",
	"payment.failed":   "failed",
	"order.paid":       "paid",
	"refund.processed": "refunded",
}

func (g *Razorpay) ParseWebhook(payload []byte, header http.Header) (*PaymentEvent, error) {
	sig := header.Get("X-Razorpay-Signature")
	if sig == "" {
		sig = header.Get("Signature")
	}
	if !validHMAC(g.webhookSecret, payload, sig) {
		return nil, fmt.Errorf("%w: razorpay webhook", billing.ErrSignatureInvalid)
	}

	var body razorpayWebhook
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: razorpay webhook body: %v", billing.ErrInvalidInput, err)
	}

	ev := &PaymentEvent{Gateway: NameRazorpay, EventType: body.Event}
	raw := eventStatus[body.Event]

	if p := body.Payload.Payment; p != nil {
		ev.OrderID = p.Entity.OrderID
		ev.PaymentID = p.Entity.ID
		ev.Amount = p.Entity.Amount
		ev.Currency = strings.ToUpper(p.Entity.Currency)
		ev.FailureReason = p.Entity.ErrorDescription
		if raw == "" {
			raw = p.Entity.Status
		}
	}
	if o := body.Payload.Order; o != nil {
		if ev.OrderID == "" {
			ev.OrderID = o.Entity.ID
		}
		if ev.Amount == 0 {
			ev.Amount = o.Entity.AmountPaid
			ev.Currency = strings.ToUpper(o.Entity.Currency)
		}
	}

	ev.Status = NormalizeStatus(raw)
	if ev.Status != StatusPending && ev.OrderID == "" {
		return nil, fmt.Errorf("%w: razorpay %s without order id", billing.ErrInvalidInput, body.Event)
	}
	return ev, nil
}

// ConfirmCheckout checks the checkout signature HMAC(key secret, order|payment).
// The order id binds the amount, so the event carries none.
func (g *Razorpay) ConfirmCheckout(_ context.Context, orderID, paymentID, signature string) (*PaymentEvent, error) {
	if orderID == "" || paymentID == "" {
		return nil, fmt.Errorf("%w: order_id and gateway_payment_id are required", billing.ErrInvalidInput)
	}
	if !validHMAC(g.keySecret, []byte(orderID+"|"+paymentID), signature) {
		return nil, fmt.Errorf("%w: checkout signature", billing.ErrSignatureInvalid)
	}
	return &PaymentEvent{
		Gateway:         NameRazorpay,
		EventType:       "checkout.verified",
		OrderID:         orderID,
		PaymentID:       paymentID,
		Status:          StatusSucceeded,
		AmountFromOrder: true,
	}, nil
}

// Sign returns the hex HMAC-SHA256 of msg. Exposed for clients and tests that
// need to produce gateway-compatible signatures.
func Sign(secret string, msg []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

func validHMAC(secret string, msg []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hmac.Equal(got, mac.Sum(nil))
}
