package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Cancel stops renewal of the caller's subscription; access lasts until the
// paid period ends.
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.errs.BadRequest(c, "Invalid request body")
		return
	}

	sub, err := h.lifecycle.CancelForUser(c.Request.Context(), id, body.Reason)
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *Handler) Downgrade(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	sub, err := h.lifecycle.DowngradeToFree(c.Request.Context(), id)
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
