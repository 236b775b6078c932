package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"donation-platform/internal/domain/access"
	"donation-platform/internal/domain/subscriptions"
)

// PolicySource evaluates a user's current access.
type PolicySource interface {
	Policy(ctx context.Context, userID string) (*subscriptions.Subscription, access.Policy, error)
}

// RequirePaidAccess lets through callers whose subscription currently grants
// paid (or trial) benefits.
func RequirePaidAccess(src PolicySource) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated", "code": "unauthorized"})
			return
		}

		_, policy, err := src.Policy(c.Request.Context(), id.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": "internal"})
			return
		}
		if !policy.State.HasPaidAccess() {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error": "An active subscription is required",
				"code":  "payment_required",
				"state": policy.State,
			})
			return
		}
		c.Next()
	}
}
