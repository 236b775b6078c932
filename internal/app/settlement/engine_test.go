package settlement_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"donation-platform/internal/app/settlement"
	"donation-platform/internal/domain/billing"
	"donation-platform/internal/domain/plans"
	"donation-platform/internal/domain/subscriptions"
	"donation-platform/internal/infra/gateway"
	"donation-platform/internal/infra/logger"
	"donation-platform/internal/infra/notify"
	"donation-platform/internal/store"
	"donation-platform/internal/store/storetest"
)

var t0 = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

type noticeRecorder struct {
	mu      sync.Mutex
	notices []notify.Notice
}

func (r *noticeRecorder) Notify(n notify.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

type fixture struct {
	store   *store.Store
	db      *gorm.DB
	engine  *settlement.Engine
	clock   *clock
	plans   map[string]plans.Plan
	notices *noticeRecorder
}

func newFixture(t *testing.T, opts ...settlement.Option) *fixture {
	t.Helper()
	st, db := storetest.Open(t)
	f := &fixture{store: st, db: db, clock: &clock{now: t0}, notices: &noticeRecorder{}}
	f.plans = storetest.Seed(t, st)
	opts = append([]settlement.Option{settlement.WithClock(f.clock.Now), settlement.WithNotifier(f.notices)}, opts...)
	f.engine = settlement.NewEngine(st, logger.Discard(), opts...)
	return f
}

func (f *fixture) order(t *testing.T, orderID, userID, slug string, cycle billing.BillingCycle) *billing.Transaction {
	t.Helper()
	p := f.plans[slug]
	price := p.PriceFor(cycle)
	txn := &billing.Transaction{
		OrderID:      orderID,
		Gateway:      gateway.NameRazorpay,
		UserID:       userID,
		ContactEmail: userID + "@example.com",
		PlanID:       p.ID,
		Plan:         billing.PlanSnapshot{Tier: p.Tier, Name: p.Name, Price: price, BillingCycle: cycle},
		Amount:       price,
		Currency:     p.Currency,
		Status:       billing.StatusCreated,
		Invoice:      billing.Invoice{BaseAmount: price, Total: price},
	}
	require.NoError(t, f.store.CreateTransaction(context.Background(), txn))
	return txn
}

func paid(orderID, paymentID string, amount int64) gateway.PaymentEvent {
	return gateway.PaymentEvent{
		Gateway:   gateway.NameRazorpay,
		EventType: "payment.captured",
		OrderID:   orderID,
		PaymentID: paymentID,
		Status:    gateway.StatusSucceeded,
		Amount:    amount,
		Currency:  "INR",
	}
}

func TestSettleActivatesNewSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.order(t, "order_a", "u1", "supporter", billing.CycleMonthly)

	res, err := f.engine.Settle(ctx, paid("order_a", "pay_1", 999))
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, billing.StatusCompleted, res.Transaction.Status)
	require.NotNil(t, res.Transaction.GatewayPaymentID)
	assert.Equal(t, "pay_1", *res.Transaction.GatewayPaymentID)

	sub := res.Subscription
	require.NotNil(t, sub)
	assert.Equal(t, subscriptions.StatusActive, sub.Status)
	assert.True(t, sub.AutoRenew)
	assert.Equal(t, 2, sub.PlanTier)
	assert.Equal(t, billing.CycleMonthly, sub.BillingCycle)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.True(t, sub.CurrentPeriodEnd.Equal(t0.Add(30*24*time.Hour)))

	require.Len(t, f.notices.notices, 1)
	assert.Equal(t, notify.KindActivated, f.notices.notices[0].Kind)
	assert.Equal(t, "u1@example.com", f.notices.notices[0].Email)
}

func TestSettleIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.order(t, "order_a", "u1", "supporter", billing.CycleMonthly)

	first, err := f.engine.Settle(ctx, paid("order_a", "pay_1", 999))
	require.NoError(t, err)
	end := *first.Subscription.CurrentPeriodEnd

	f.clock.now = t0.Add(time.Hour)
	for i := 0; i < 5; i++ {
		res, err := f.engine.Settle(ctx, paid("order_a", "pay_1", 999))
		require.NoError(t, err)
		assert.False(t, res.Applied)
		assert.Equal(t, billing.StatusCompleted, res.Transaction.Status)
		require.NotNil(t, res.Subscription)
		assert.True(t, res.Subscription.CurrentPeriodEnd.Equal(end))
	}
	assert.Len(t, f.notices.notices, 1)
}

func TestSettleConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.order(t, "order_a", "u1", "supporter", billing.CycleMonthly)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Settle(ctx, paid("order_a", "pay_1", 999))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	sub, err := f.store.CurrentSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, sub.CurrentPeriodEnd.Equal(t0.Add(30*24*time.Hour)))
}

func TestSettleRejectsReusedPaymentID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.order(t, "order_a", "u1", "supporter", billing.CycleMonthly)
	f.order(t, "order_b", "u1", "supporter", billing.CycleMonthly)

	_, err := f.engine.Settle(ctx, paid("order_a", "pay_1", 999))
	require.NoError(t, err)

	res, err := f.engine.Settle(ctx, paid("order_b", "pay_1", 999))
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, billing.StatusCreated, res.Transaction.Status)

	sub, err := f.store.CurrentSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, sub.CurrentPeriodEnd.Equal(t0.Add(30*24*time.Hour)), "second order must not extend the period")
}

func TestSettleAmountMismatchMarksFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.order(t, "order_a", "u1", "supporter", billing.CycleMonthly)

	res, err := f.engine.Settle(ctx, paid("order_a", "pay_1", 1))
	assert.ErrorIs(t, err, billing.ErrAmountMismatch)
	require.NotNil(t, res)
	assert.Equal(t, billing.StatusFailed, res.Transaction.Status)
	assert.Contains(t, res.Transaction.FailureReason, "amount mismatch")
	assert.Nil(t, res.Subscription)

	// Commit happened: a correct replay cannot resurrect the order.
	res, err = f.engine.Settle(ctx, paid("order_a", "pay_1", 999))
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, billing.StatusFailed, res.Transaction.Status)

	_, err = f.store.CurrentSubscription(ctx, "u1")
	assert.ErrorIs(t, err, billing.ErrSubscriptionNotFound)
}

func TestSettleCurrencyMismatch(t *testing.T) {
	f := newFixture(t)
	f.order(t, "order_a", "u1", "supporter", billing.CycleMonthly)

	ev := paid("order_a", "pay_1", 999)
	ev.Currency = "USD"
	_, err := f.engine.Settle(context.Background(), ev)
	assert.ErrorIs(t, err, billing.ErrAmountMismatch)
}

func TestSettleVerifyPathSkipsAmountCheck(t *testing.T) {
	f := newFixture(t)
	f.order(t, "order_a", "u1", "supporter", billing.CycleMonthly)

	ev := paid("order_a", "pay_1", 0)
	ev.Currency = ""
	ev.AmountFromOrder = true
	res, err := f.engine.Settle(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCompleted, res.Transaction.Status)
}

func TestSettleRenewalExtendsFromPeriodEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.order(t, "order_a", "u1", "supporter", billing.CycleMonthly)
	first, err := f.engine.Settle(ctx, paid("order_a", "pay_1", 999))
	require.NoError(t, err)
	end := *first.Subscription.CurrentPeriodEnd

	// Renew five days before the period ends.
	f.clock.now = end.Add(-5 * 24 * time.Hour)
	f.order(t, "order_b", "u1", "supporter", billing.CycleMonthly)
	res, err := f.engine.Settle(ctx, paid("order_b", "pay_2", 999))
	require.NoError(t, err)

	assert.Equal(t, first.Subscription.ID, res.Subscription.ID)
	assert.True(t, res.Subscription.CurrentPeriodEnd.Equal(end.Add(30*24*time.Hour)))
	require.NotNil(t, res.Subscription.LastTransactionID)
	assert.Equal(t, res.Transaction.ID, *res.Subscription.LastTransactionID)
	assert.Equal(t, notify.KindRenewed, f.notices.notices[1].Kind)
}

func TestSettleLapsedActiveRestartsFromNow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.order(t, "order_a", "u1", "supporter", billing.CycleMonthly)
	first, err := f.engine.Settle(ctx, paid("order_a", "pay_1", 999))
	require.NoError(t, err)

	f.clock.now = first.Subscription.CurrentPeriodEnd.Add(48 * time.Hour)
	f.order(t, "order_b", "u1", "patron", billing.CycleYearly)
	res, err := f.engine.Settle(ctx, paid("order_b", "pay_2", 24990))
	require.NoError(t, err)

	assert.True(t, res.Subscription.CurrentPeriodEnd.Equal(f.clock.now.Add(365*24*time.Hour)))
	assert.True(t, res.Subscription.CurrentPeriodStart.Equal(f.clock.now))
	assert.Equal(t, 3, res.Subscription.PlanTier)
	assert.Equal(t, billing.CycleYearly, res.Subscription.BillingCycle)
}

func TestSettleConvertsTrial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trialEnd := t0.Add(14 * 24 * time.Hour)
	trial := &subscriptions.Subscription{
		UserID:           "u1",
		PlanID:           f.plans["patron"].ID,
		PlanTier:         3,
		Status:           subscriptions.StatusTrial,
		CurrentPeriodEnd: &trialEnd,
	}
	require.NoError(t, f.store.CreateSubscription(ctx, trial))

	f.clock.now = t0.Add(24 * time.Hour)
	f.order(t, "order_a", "u1", "supporter", billing.CycleMonthly)
	res, err := f.engine.Settle(ctx, paid("order_a", "pay_1", 999))
	require.NoError(t, err)

	assert.Equal(t, trial.ID, res.Subscription.ID)
	assert.Equal(t, subscriptions.StatusActive, res.Subscription.Status)
	assert.True(t, res.Subscription.CurrentPeriodStart.Equal(f.clock.now))
	assert.True(t, res.Subscription.CurrentPeriodEnd.Equal(f.clock.now.Add(30*24*time.Hour)))
	assert.Equal(t, 2, res.Subscription.PlanTier)
}

func TestSettleAfterCancellationCreatesNewSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	end := t0.Add(10 * 24 * time.Hour)
	old := &subscriptions.Subscription{UserID: "u1", Status: subscriptions.StatusCancelled, CurrentPeriodEnd: &end}
	require.NoError(t, f.store.CreateSubscription(ctx, old))

	f.order(t, "order_a", "u1", "supporter", billing.CycleMonthly)
	res, err := f.engine.Settle(ctx, paid("order_a", "pay_1", 999))
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, res.Subscription.ID)
	assert.Equal(t, subscriptions.StatusActive, res.Subscription.Status)
}

func TestSettleFailureAndRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.order(t, "order_f", "u1", "supporter", billing.CycleMonthly)
	f.order(t, "order_r", "u1", "supporter", billing.CycleMonthly)

	ev := paid("order_f", "pay_f", 999)
	ev.Status = gateway.StatusFailed
	ev.FailureReason = "card declined"
	res, err := f.engine.Settle(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusFailed, res.Transaction.Status)
	assert.Equal(t, "card declined", res.Transaction.FailureReason)

	ev = paid("order_r", "pay_r", 999)
	ev.Status = gateway.StatusRefunded
	res, err = f.engine.Settle(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusRefunded, res.Transaction.Status)

	_, err = f.store.CurrentSubscription(ctx, "u1")
	assert.ErrorIs(t, err, billing.ErrSubscriptionNotFound)
	assert.Empty(t, f.notices.notices)
}

func TestSettleTerminalTransactionIsImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.order(t, "order_a", "u1", "supporter", billing.CycleMonthly)
	_, err := f.engine.Settle(ctx, paid("order_a", "pay_1", 999))
	require.NoError(t, err)

	for _, status := range []gateway.Status{gateway.StatusFailed, gateway.StatusRefunded} {
		ev := paid("order_a", "pay_1", 999)
		ev.Status = status
		res, err := f.engine.Settle(ctx, ev)
		require.NoError(t, err)
		assert.False(t, res.Applied)
		assert.Equal(t, billing.StatusCompleted, res.Transaction.Status)
	}
}

func TestSettlePendingChangesNothing(t *testing.T) {
	f := newFixture(t)
	f.order(t, "order_a", "u1", "supporter", billing.CycleMonthly)

	ev := paid("order_a", "pay_1", 999)
	ev.Status = gateway.StatusPending
	res, err := f.engine.Settle(context.Background(), ev)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, billing.StatusCreated, res.Transaction.Status)
}

func TestSettlePendingWithWrongAmountFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.order(t, "order_a", "u1", "supporter", billing.CycleMonthly)

	ev := paid("order_a", "pay_1", 1)
	ev.Status = gateway.StatusPending
	res, err := f.engine.Settle(ctx, ev)
	assert.ErrorIs(t, err, billing.ErrAmountMismatch)
	require.NotNil(t, res)
	assert.True(t, res.Applied)
	assert.Equal(t, billing.StatusFailed, res.Transaction.Status)

	txn, err := f.store.TransactionByOrderID(ctx, "order_a")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusFailed, txn.Status)
	assert.Contains(t, txn.FailureReason, "amount mismatch")
}

func TestSettleSurfacesRepeatedLiveSubscriptionRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.order(t, "order_a", "u1", "supporter", billing.CycleMonthly)

	var attempts int
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:lose_live_race", func(tx *gorm.DB) {
		if tx.Statement.Table == "subscriptions" {
			attempts++
			_ = tx.AddError(gorm.ErrDuplicatedKey)
		}
	}))

	res, err := f.engine.Settle(ctx, paid("order_a", "pay_1", 999))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, store.ErrLiveSubscriptionExists)
	assert.Equal(t, 2, attempts)

	txn, err := f.store.TransactionByOrderID(ctx, "order_a")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCreated, txn.Status, "a lost race must leave the payment for the gateway retry")
	assert.Empty(t, f.notices.notices)
}

func TestSettleValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Settle(ctx, paid("order_missing", "pay_1", 999))
	assert.ErrorIs(t, err, billing.ErrTransactionNotFound)
	assert.ErrorIs(t, err, billing.ErrNotFound)

	_, err = f.engine.Settle(ctx, paid("", "pay_1", 999))
	assert.ErrorIs(t, err, billing.ErrInvalidInput)

	_, err = f.engine.Settle(ctx, paid("order_x", "", 999))
	assert.ErrorIs(t, err, billing.ErrInvalidInput)
}

type stubConfirmer struct {
	ev  *gateway.PaymentEvent
	err error
}

func (s stubConfirmer) ConfirmCheckout(_ context.Context, orderID, paymentID, _ string) (*gateway.PaymentEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	ev := *s.ev
	ev.OrderID, ev.PaymentID = orderID, paymentID
	return &ev, nil
}

func TestSettleConfirmed(t *testing.T) {
	confirmer := stubConfirmer{ev: &gateway.PaymentEvent{Status: gateway.StatusSucceeded, AmountFromOrder: true}}
	f := newFixture(t, settlement.WithConfirmer(confirmer))
	ctx := context.Background()
	f.order(t, "order_a", "u1", "supporter", billing.CycleMonthly)

	_, err := f.engine.SettleConfirmed(ctx, "intruder", "order_a", "pay_1", "sig")
	assert.ErrorIs(t, err, billing.ErrForbidden)

	res, err := f.engine.SettleConfirmed(ctx, "u1", "order_a", "pay_1", "sig")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCompleted, res.Transaction.Status)

	// The webhook for the same payment arrives afterwards.
	res, err = f.engine.Settle(ctx, paid("order_a", "pay_1", 999))
	require.NoError(t, err)
	assert.False(t, res.Applied)
}

func TestSettleConfirmedBadSignature(t *testing.T) {
	confirmer := stubConfirmer{err: billing.ErrSignatureInvalid}
	f := newFixture(t, settlement.WithConfirmer(confirmer))
	f.order(t, "order_a", "u1", "supporter", billing.CycleMonthly)

	_, err := f.engine.SettleConfirmed(context.Background(), "u1", "order_a", "pay_1", "bad")
	assert.True(t, errors.Is(err, billing.ErrSignatureInvalid))

	// Someone else's order and an unknown order look the same without a
	// valid confirmation.
	_, err = f.engine.SettleConfirmed(context.Background(), "intruder", "order_a", "pay_1", "bad")
	assert.ErrorIs(t, err, billing.ErrSignatureInvalid)
	assert.NotErrorIs(t, err, billing.ErrForbidden)

	_, err = f.engine.SettleConfirmed(context.Background(), "intruder", "order_missing", "pay_1", "bad")
	assert.ErrorIs(t, err, billing.ErrSignatureInvalid)

	txn, err := f.store.TransactionByOrderID(context.Background(), "order_a")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCreated, txn.Status)
}
