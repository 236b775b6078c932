// Package billing serves the supporter-facing order and subscription routes.
package billing

import (
	"github.com/gin-gonic/gin"

	"donation-platform/internal/api/apierr"
	"donation-platform/internal/app/http/middleware"
	"donation-platform/internal/app/lifecycle"
	"donation-platform/internal/app/orders"
	"donation-platform/internal/app/settlement"
	"donation-platform/internal/domain/access"
	"donation-platform/internal/domain/billing"
	"donation-platform/internal/store"
)

type Handler struct {
	orders    *orders.Initiator
	engine    *settlement.Engine
	lifecycle *lifecycle.Manager
	store     *store.Store
	errs      apierr.Writer
}

func NewHandler(o *orders.Initiator, e *settlement.Engine, l *lifecycle.Manager, st *store.Store, errs apierr.Writer) *Handler {
	return &Handler{orders: o, engine: e, lifecycle: l, store: st, errs: errs}
}

func (h *Handler) identity(c *gin.Context) (access.Identity, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok || id.UserID == "" {
		h.errs.Write(c, billing.ErrUnauthorized)
		return access.Identity{}, false
	}
	return id, true
}
