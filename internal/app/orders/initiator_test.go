package orders_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donation-platform/internal/app/orders"
	"donation-platform/internal/domain/access"
	"donation-platform/internal/domain/billing"
	"donation-platform/internal/infra/gateway"
	"donation-platform/internal/infra/logger"
	"donation-platform/internal/store/storetest"
)

var caller = access.Identity{UserID: "u1", Email: "u1@example.com"}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()
	st, _ := storetest.Open(t)
	catalog := storetest.Seed(t, st)
	gw := gateway.NewRazorpay("rzp_key", "secret", "hook")

	initiator, err := orders.NewInitiator(st, gw, "0.18", logger.Discard())
	require.NoError(t, err)

	order, err := initiator.Create(ctx, caller, catalog["supporter"].ID, "monthly")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(order.OrderID, "order_"))
	assert.Equal(t, "rzp_key", order.GatewayKey)
	assert.Equal(t, gateway.NameRazorpay, order.Gateway)
	// 999 * 0.18 = 179.82 -> 180
	assert.Equal(t, billing.Invoice{BaseAmount: 999, Tax: 180, Total: 1179}, order.Invoice)
	assert.EqualValues(t, 1179, order.Amount)
	assert.Equal(t, "INR", order.Currency)

	txn, err := st.TransactionByOrderID(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCreated, txn.Status)
	assert.Equal(t, "u1", txn.UserID)
	assert.Equal(t, "u1@example.com", txn.ContactEmail)
	assert.Equal(t, billing.PlanSnapshot{Tier: 2, Name: "Supporter", Price: 999, BillingCycle: billing.CycleMonthly}, txn.Plan)
	assert.EqualValues(t, 1179, txn.Amount)
}

func TestCreateOrderTaxRoundsHalfUp(t *testing.T) {
	st, _ := storetest.Open(t)
	catalog := storetest.Seed(t, st)

	// 2499 * 0.1 = 249.9 -> 250; 24990 * 0.1 = 2499 exactly.
	initiator, err := orders.NewInitiator(st, gateway.NewRazorpay("k", "s", "w"), "0.1", logger.Discard())
	require.NoError(t, err)

	o, err := initiator.Create(context.Background(), caller, catalog["patron"].ID, "monthly")
	require.NoError(t, err)
	assert.EqualValues(t, 250, o.Invoice.Tax)

	o, err = initiator.Create(context.Background(), caller, catalog["patron"].ID, "yearly")
	require.NoError(t, err)
	assert.EqualValues(t, 2499, o.Invoice.Tax)
	assert.EqualValues(t, 27489, o.Amount)
}

func TestCreateOrderRejects(t *testing.T) {
	ctx := context.Background()
	st, _ := storetest.Open(t)
	catalog := storetest.Seed(t, st)
	initiator, err := orders.NewInitiator(st, gateway.NewRazorpay("k", "s", "w"), "", logger.Discard())
	require.NoError(t, err)

	_, err = initiator.Create(ctx, caller, catalog["supporter"].ID, "weekly")
	assert.ErrorIs(t, err, billing.ErrInvalidInput)

	_, err = initiator.Create(ctx, caller, 9999, "monthly")
	assert.ErrorIs(t, err, billing.ErrInvalidPlan)
	assert.ErrorIs(t, err, billing.ErrNotFound)

	_, err = initiator.Create(ctx, caller, catalog["retired"].ID, "monthly")
	assert.ErrorIs(t, err, billing.ErrInvalidPlan)

	_, err = initiator.Create(ctx, caller, catalog["free"].ID, "monthly")
	assert.ErrorIs(t, err, billing.ErrInvalidInput)

	_, err = initiator.Create(ctx, access.Identity{}, catalog["supporter"].ID, "monthly")
	assert.ErrorIs(t, err, billing.ErrUnauthorized)
}

func TestNewInitiatorRejectsBadTaxRate(t *testing.T) {
	st, _ := storetest.Open(t)
	gw := gateway.NewRazorpay("k", "s", "w")

	for _, rate := range []string{"abc", "-0.1", "1"} {
		_, err := orders.NewInitiator(st, gw, rate, logger.Discard())
		assert.Error(t, err, rate)
	}
}
