package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PaymentHistory lists the caller's transactions, newest first.
func (h *Handler) PaymentHistory(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	list, err := h.store.TransactionsForUser(c.Request.Context(), id.UserID)
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
