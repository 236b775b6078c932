package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSubscription returns the caller's current subscription and what it grants.
func (h *Handler) GetSubscription(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	sub, policy, err := h.lifecycle.Policy(c.Request.Context(), id.UserID)
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub, "access": policy})
}

func (h *Handler) StartTrial(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var body struct {
		PlanID uint `json:"plan_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.PlanID == 0 {
		h.errs.BadRequest(c, "Missing or invalid plan_id")
		return
	}

	sub, err := h.lifecycle.StartTrial(c.Request.Context(), id, body.PlanID)
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *Handler) SetAutoRenew(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Enabled == nil {
		h.errs.BadRequest(c, "enabled is required")
		return
	}

	sub, err := h.lifecycle.SetAutoRenew(c.Request.Context(), id, *body.Enabled)
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
