// Package admin serves operator routes: cancellations, revenue, payments and
// the expiry sweep.
package admin

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"donation-platform/internal/api/apierr"
	"donation-platform/internal/app/lifecycle"
	"donation-platform/internal/app/revenue"
	"donation-platform/internal/domain/billing"
	"donation-platform/internal/domain/subscriptions"
	"donation-platform/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type Handler struct {
	lifecycle *lifecycle.Manager
	revenue   *revenue.Aggregator
	store     *store.Store
	errs      apierr.Writer
}

func NewHandler(l *lifecycle.Manager, agg *revenue.Aggregator, st *store.Store, errs apierr.Writer) *Handler {
	return &Handler{lifecycle: l, revenue: agg, store: st, errs: errs}
}

type AdminPayment struct {
	ID               uint       `json:"id"`
	OrderID          string     `json:"order_id"`
	GatewayPaymentID *string    `json:"gateway_payment_id,omitempty"`
	UserID           string     `json:"user_id"`
	PlanName         string     `json:"plan_name"`
	Tier             int        `json:"tier"`
	Amount           int64      `json:"amount"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	SettledAt        *time.Time `json:"settled_at,omitempty"`
	CreatedAt        string     `json:"created_at"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// CancelSubscription cancels any subscription on an operator's behalf. The
// reason is mandatory and recorded on the subscription.
func (h *Handler) CancelSubscription(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		h.errs.BadRequest(c, "Invalid subscription id")
		return
	}
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.BadRequest(c, "Invalid request body")
		return
	}

	sub, err := h.lifecycle.Cancel(c.Request.Context(), uint(id), subscriptions.ActorAdmin, req.Reason)
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Revenue reports transaction counts and completed revenue, optionally
// restricted to ?since=RFC3339.
func (h *Handler) Revenue(c *gin.Context) {
	var since *time.Time
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.errs.BadRequest(c, "since must be an RFC3339 timestamp")
			return
		}
		since = &t
	}

	report, err := h.revenue.Report(c.Request.Context(), since)
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Payments lists every transaction, newest first.
func (h *Handler) Payments(c *gin.Context) {
	limit, offset, ok := h.page(c)
	if !ok {
		return
	}
	list, err := h.store.ListTransactions(c.Request.Context(), limit, offset)
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	result := make([]AdminPayment, 0, len(list))
	for _, t := range list {
		result = append(result, toAdminPayment(t))
	}
	c.JSON(http.StatusOK, gin.H{"payments": result, "limit": limit, "offset": offset})
}

// UserDetails returns a supporter's current subscription, access policy and
// payments.
func (h *Handler) UserDetails(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	if userID == "" {
		h.errs.BadRequest(c, "Invalid user id")
		return
	}
	ctx := c.Request.Context()

	sub, policy, err := h.lifecycle.Policy(ctx, userID)
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	txns, err := h.store.TransactionsForUser(ctx, userID)
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	payments := make([]AdminPayment, 0, len(txns))
	for _, t := range txns {
		payments = append(payments, toAdminPayment(t))
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"subscription": sub,
		"access":       policy,
		"payments":     payments,
	})
}

// Sweep runs the expiry pass immediately instead of waiting for the ticker.
func (h *Handler) Sweep(c *gin.Context) {
	n, err := h.lifecycle.ExpireDue(c.Request.Context())
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": n})
}

// WebhookEvents lists the most recent gateway deliveries and their outcome.
func (h *Handler) WebhookEvents(c *gin.Context) {
	limit, _, ok := h.page(c)
	if !ok {
		return
	}
	events, err := h.store.WebhookEvents(c.Request.Context(), limit)
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) page(c *gin.Context) (limit, offset int, ok bool) {
	limit, offset = defaultPageSize, 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.errs.BadRequest(c, "limit must be a positive integer")
			return 0, 0, false
		}
		limit = min(n, maxPageSize)
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.errs.BadRequest(c, "offset must not be negative")
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

func toAdminPayment(t billing.Transaction) AdminPayment {
	return AdminPayment{
		ID:               t.ID,
		OrderID:          t.OrderID,
		GatewayPaymentID: t.GatewayPaymentID,
		UserID:           t.UserID,
		PlanName:         t.Plan.Name,
		Tier:             t.Plan.Tier,
		Amount:           t.Amount,
		Currency:         t.Currency,
		Status:           string(t.Status),
		FailureReason:    t.FailureReason,
		SettledAt:        t.SettledAt,
		CreatedAt:        t.CreatedAt.Format("2006-01-02 15:04"),
	}
}
