package routes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	adminapi "donation-platform/internal/api/admin"
	"donation-platform/internal/api/billing"
	"donation-platform/internal/api/paymentwebhook"
	"donation-platform/internal/api/plans"
	"donation-platform/internal/api/users"
	"donation-platform/internal/app/http/middleware"
	"donation-platform/internal/domain/access"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	JWTSecret  []byte
	Authorizer access.Authorizer
	Policies   middleware.PolicySource
	DB         Pinger
	Log        *slog.Logger

	Billing *billing.Handler
	Plans   *plans.Handler
	Users   *users.Handler
	Webhook *paymentwebhook.Handler
	Admin   *adminapi.Handler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// The webhook signature covers the raw body, so it stays outside the
	// sanitizing groups.
	r.POST("/webhook", d.Webhook.Receive)
	r.GET("/health", health(d.DB, d.Log))
	r.GET("/plans", d.Plans.ListPlans)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.Authenticate(d.JWTSecret), middleware.SanitizeInput())
	auth.GET("/me", d.Users.GetCurrentUser)
	auth.POST("/orders", d.Billing.CreateOrder)
	auth.POST("/orders/verify", d.Billing.VerifyOrder)
	auth.GET("/subscription", d.Billing.GetSubscription)
	auth.POST("/subscription/trial", d.Billing.StartTrial)
	auth.POST("/subscription/cancel", d.Billing.Cancel)
	auth.POST("/subscription/downgrade", d.Billing.Downgrade)
	auth.GET("/payments", d.Billing.PaymentHistory)

	// Supporters with paid or trial access
	subscribed := auth.Group("/")
	subscribed.Use(middleware.RequirePaidAccess(d.Policies))
	subscribed.POST("/subscription/auto-renew", d.Billing.SetAutoRenew)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(
		middleware.Authenticate(d.JWTSecret),
		middleware.RequireCapability(d.Authorizer, access.CapAdmin),
		middleware.SanitizeInput(),
	)
	admin.POST("/subscriptions/:id/cancel", d.Admin.CancelSubscription)
	admin.GET("/revenue", d.Admin.Revenue)
	admin.GET("/payments", d.Admin.Payments)
	admin.GET("/users/:id", d.Admin.UserDetails)
	admin.GET("/webhook-events", d.Admin.WebhookEvents)
	admin.POST("/sweep", d.Admin.Sweep)
	admin.POST("/sync-plans", d.Plans.SyncPlans)
}

func health(db Pinger, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			log.Warn("health check failed", slog.String("error", err.Error()))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
