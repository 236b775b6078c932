// Package users serves the caller's own profile.
package users

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"donation-platform/internal/api/apierr"
	"donation-platform/internal/app/http/middleware"
	"donation-platform/internal/app/lifecycle"
	"donation-platform/internal/domain/billing"
	"donation-platform/internal/domain/plans"
	"donation-platform/internal/store"
)

type Handler struct {
	lifecycle *lifecycle.Manager
	store     *store.Store
	errs      apierr.Writer
	now       func() time.Time
}

func NewHandler(l *lifecycle.Manager, st *store.Store, errs apierr.Writer) *Handler {
	return &Handler{lifecycle: l, store: st, errs: errs, now: time.Now}
}

// GetCurrentUser returns the caller's identity, plan, subscription and the
// perks it grants right now.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok || id.UserID == "" {
		h.errs.Write(c, billing.ErrUnauthorized)
		return
	}
	ctx := c.Request.Context()

	sub, policy, err := h.lifecycle.Policy(ctx, id.UserID)
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	var plan *plans.Plan
	if sub != nil {
		plan, err = h.store.PlanByID(ctx, sub.PlanID)
		if err != nil && !errors.Is(err, billing.ErrInvalidPlan) {
			h.errs.Write(c, err)
			return
		}
	}

	resp := MeResponse{
		User: UserDTO{
			ID:    id.UserID,
			Email: stringPtrIfNotEmpty(id.Email),
			Role:  stringPtrIfNotEmpty(id.Role),
		},
		Billing: BillingDTO{
			Plan:         BuildPlanDTO(plan, sub),
			Subscription: BuildSubscriptionDTO(sub),
			Trial:        BuildTrialDTO(h.now(), sub),
		},
		Access: BuildAccessDTO(policy),
	}

	c.JSON(http.StatusOK, resp)
}

func stringPtrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
