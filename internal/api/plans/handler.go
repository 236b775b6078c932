// Package plans serves the public catalog and the Stripe price import.
package plans

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"donation-platform/internal/api/apierr"
	"donation-platform/internal/domain/plans"
	"donation-platform/internal/store"
)

// PriceSource lists catalog plans from a billing provider. The second return
// is the number of provider prices that could not be mapped.
type PriceSource interface {
	CatalogPrices(ctx context.Context) ([]plans.Plan, int, error)
}

type Handler struct {
	store  *store.Store
	source PriceSource
	errs   apierr.Writer
	log    *slog.Logger
}

// NewHandler builds the handler. source may be nil when no provider catalog
// is configured; Sync then answers 501.
func NewHandler(st *store.Store, source PriceSource, errs apierr.Writer, log *slog.Logger) *Handler {
	return &Handler{store: st, source: source, errs: errs, log: log}
}

// ListPlans returns the active catalog ordered by tier.
func (h *Handler) ListPlans(c *gin.Context) {
	list, err := h.store.ListPlans(c.Request.Context(), true)
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// SyncPlans imports recurring prices and upserts them by slug.
func (h *Handler) SyncPlans(c *gin.Context) {
	if h.source == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Stripe key not configured"})
		return
	}
	ctx := c.Request.Context()

	imported, skipped, err := h.source.CatalogPrices(ctx)
	if err != nil {
		h.log.Error("plan sync failed", slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch Stripe prices"})
		return
	}

	created, updated, err := h.store.UpsertPlans(ctx, imported)
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	h.log.Info("plans synced",
		slog.Int("created", created),
		slog.Int("updated", updated),
		slog.Int("skipped", skipped),
	)
	c.JSON(http.StatusOK, gin.H{
		"synced":  created + updated,
		"created": created,
		"updated": updated,
		"skipped": skipped,
	})
}
