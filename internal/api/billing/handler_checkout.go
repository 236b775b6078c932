package billing

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"donation-platform/internal/domain/billing"
)

// CreateOrder opens a pending transaction for the chosen plan and cycle.
func (h *Handler) CreateOrder(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var body struct {
		PlanID       uint   `json:"plan_id"`
		BillingCycle string `json:"billing_cycle"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.PlanID == 0 {
		h.errs.BadRequest(c, "Missing or invalid plan_id")
		return
	}

	order, err := h.orders.Create(c.Request.Context(), id, body.PlanID, body.BillingCycle)
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// VerifyOrder settles a checkout the client reports as paid. It converges
// with the webhook path, so whichever arrives second is a no-op.
func (h *Handler) VerifyOrder(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var body struct {
		OrderID          string `json:"order_id"`
		GatewayPaymentID string `json:"gateway_payment_id"`
		GatewaySignature string `json:"gateway_signature"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.OrderID == "" || body.GatewayPaymentID == "" {
		h.errs.BadRequest(c, "order_id and gateway_payment_id are required")
		return
	}

	res, err := h.engine.SettleConfirmed(c.Request.Context(), id.UserID, body.OrderID, body.GatewayPaymentID, body.GatewaySignature)
	if err != nil {
		if errors.Is(err, billing.ErrAmountMismatch) && res != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
				"error":       err.Error(),
				"code":        "amount_mismatch",
				"transaction": res.Transaction,
			})
			return
		}
		h.errs.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
