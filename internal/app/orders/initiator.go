// Package orders creates pending transactions for plan purchases.
package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"donation-platform/internal/domain/access"
	"donation-platform/internal/domain/billing"
	"donation-platform/internal/store"
)

// Order is what the client needs to open the gateway checkout.
type Order struct {
	OrderID    string          `json:"order_id"`
	Amount     int64           `json:"amount"`
	Currency   string          `json:"currency"`
	Gateway    string          `json:"gateway"`
	GatewayKey string          `json:"gateway_key"`
	Invoice    billing.Invoice `json:"invoice"`
}

// Checkout is the part of a payment gateway the initiator needs.
type Checkout interface {
	Name() string
	PublicKey() string
}

type Initiator struct {
	store   *store.Store
	gateway Checkout
	taxRate decimal.Decimal
	log     *slog.Logger
}

// NewInitiator parses taxRate as a decimal fraction ("0.18" for 18%).
func NewInitiator(st *store.Store, gw Checkout, taxRate string, log *slog.Logger) (*Initiator, error) {
	rate := decimal.Zero
	if s := strings.TrimSpace(taxRate); s != "" {
		var err error
		rate, err = decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("tax rate %q: %w", taxRate, err)
		}
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("tax rate %s must be in [0, 1)", rate)
	}
	return &Initiator{store: st, gateway: gw, taxRate: rate, log: log}, nil
}

// Create records a pending transaction for the caller. The plan is
// snapshotted so later catalog edits never change what was charged.
func (i *Initiator) Create(ctx context.Context, id access.Identity, planID uint, cycle string) (*Order, error) {
	if id.UserID == "" {
		return nil, billing.ErrUnauthorized
	}
	bc, err := billing.ParseCycle(cycle)
	if err != nil {
		return nil, err
	}
	plan, err := i.store.PlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, billing.ErrInvalidPlan
	}
	if plan.IsFree() {
		return nil, fmt.Errorf("%w: the free plan cannot be purchased", billing.ErrInvalidInput)
	}

	base := plan.PriceFor(bc)
	if base <= 0 {
		return nil, fmt.Errorf("%w: plan %s has no %s price", billing.ErrInvalidInput, plan.Slug, bc)
	}
	invoice := i.invoice(base)

	txn := &billing.Transaction{
		OrderID:      "order_" + uuid.NewString(),
		Gateway:      i.gateway.Name(),
		UserID:       id.UserID,
		ContactEmail: id.Email,
		PlanID:       plan.ID,
		Plan: billing.PlanSnapshot{
			Tier:         plan.Tier,
			Name:         plan.Name,
			Price:        base,
			BillingCycle: bc,
		},
		Amount:   invoice.Total,
		Currency: plan.Currency,
		Status:   billing.StatusCreated,
		Invoice:  invoice,
	}
	if err := i.store.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}

	i.log.Info("order created",
		slog.String("order_id", txn.OrderID),
		slog.String("user_id", txn.UserID),
		slog.String("plan", plan.Slug),
		slog.Int64("amount", txn.Amount),
	)
	return &Order{
		OrderID:    txn.OrderID,
		Amount:     txn.Amount,
		Currency:   txn.Currency,
		Gateway:    i.gateway.Name(),
		GatewayKey: i.gateway.PublicKey(),
		Invoice:    invoice,
	}, nil
}

// invoice rounds tax half-up to a whole minor unit.
func (i *Initiator) invoice(base int64) billing.Invoice {
	tax := decimal.NewFromInt(base).Mul(i.taxRate).Round(0).IntPart()
	return billing.Invoice{BaseAmount: base, Tax: tax, Total: base + tax}
}
