// Package paymentwebhook receives signed gateway callbacks.
package paymentwebhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"donation-platform/internal/app/settlement"
	"donation-platform/internal/domain/billing"
	"donation-platform/internal/infra/gateway"
	"donation-platform/internal/store"
)

const maxBody = 64 << 10

// Settler applies a verified payment event.
type Settler interface {
	Settle(ctx context.Context, ev gateway.PaymentEvent) (*settlement.Result, error)
}

type Handler struct {
	gateway gateway.Gateway
	settler Settler
	store   *store.Store
	log     *slog.Logger
}

func NewHandler(gw gateway.Gateway, s Settler, st *store.Store, log *slog.Logger) *Handler {
	return &Handler{gateway: gw, settler: s, store: st, log: log}
}

// Receive authenticates the delivery, records it, then settles. Once the
// event is recorded the gateway always gets a 200: settlement failures are
// ours to investigate, and a retry would not change the outcome.
func (h *Handler) Receive(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Error reading request body"})
		return
	}

	ev, err := h.gateway.ParseWebhook(payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, billing.ErrSignatureInvalid) {
			h.log.Warn("webhook signature rejected", slog.String("gateway", h.gateway.Name()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Signature verification failed"})
			return
		}
		// Authentic but unusable: acknowledge so the gateway stops retrying.
		h.log.Warn("webhook payload rejected", slog.String("gateway", h.gateway.Name()), slog.String("error", err.Error()))
		c.Status(http.StatusOK)
		return
	}

	ctx := c.Request.Context()
	record := &billing.WebhookEvent{
		Gateway:   ev.Gateway,
		EventType: ev.EventType,
		OrderID:   ev.OrderID,
		PaymentID: ev.PaymentID,
		Payload:   string(payload),
	}
	if err := h.store.RecordWebhookEvent(ctx, record); err != nil {
		h.log.Error("webhook not recorded", slog.String("event", ev.EventType), slog.String("error", err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Temporary failure"})
		return
	}

	outcome, errMsg := h.settle(ctx, ev)
	if err := h.store.SetWebhookOutcome(ctx, record.ID, outcome, errMsg); err != nil {
		h.log.Error("webhook outcome not recorded", slog.Uint64("webhook_event_id", uint64(record.ID)), slog.String("error", err.Error()))
	}
	c.Status(http.StatusOK)
}

// settle records pending events as ignored unless they name an order and an
// amount, in which case the amount is still checked against the order.
func (h *Handler) settle(ctx context.Context, ev *gateway.PaymentEvent) (billing.WebhookOutcome, string) {
	pending := ev.Status == gateway.StatusPending
	if pending && (ev.OrderID == "" || ev.Amount == 0) {
		return billing.OutcomeIgnored, ""
	}

	res, err := h.settler.Settle(ctx, *ev)
	if err != nil {
		h.log.Error("webhook settlement failed",
			slog.String("gateway", ev.Gateway),
			slog.String("order_id", ev.OrderID),
			slog.String("payment_id", ev.PaymentID),
			slog.String("error", err.Error()),
		)
		return billing.OutcomeFailed, err.Error()
	}
	if pending {
		return billing.OutcomeIgnored, ""
	}
	if !res.Applied {
		return billing.OutcomeDuplicate, ""
	}
	return billing.OutcomeSettled, ""
}
