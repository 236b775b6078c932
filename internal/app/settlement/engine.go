// Package settlement turns verified payment outcomes into ledger and
// subscription state. Webhooks and client confirmations both end up in
// Engine.Settle, which is idempotent per order and per gateway payment id.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"donation-platform/internal/domain/billing"
	"donation-platform/internal/domain/subscriptions"
	"donation-platform/internal/infra/gateway"
	"donation-platform/internal/infra/notify"
	"donation-platform/internal/store"
)

// Confirmer authenticates a client-side checkout confirmation.
type Confirmer interface {
	ConfirmCheckout(ctx context.Context, orderID, paymentID, signature string) (*gateway.PaymentEvent, error)
}

type Result struct {
	Transaction  *billing.Transaction        `json:"transaction"`
	Subscription *subscriptions.Subscription `json:"subscription,omitempty"`
	// Applied is false when the call changed nothing (replay, pending status,
	// or a transaction already terminal).
	Applied bool `json:"applied"`
}

type Engine struct {
	store     *store.Store
	log       *slog.Logger
	notifier  notify.Notifier
	confirmer Confirmer
	now       func() time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

func WithConfirmer(c Confirmer) Option {
	return func(e *Engine) { e.confirmer = c }
}

func NewEngine(st *store.Store, log *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		log:      log,
		notifier: notify.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Settle applies one payment outcome. A transaction that is already terminal
// is returned unchanged. An amount or currency mismatch marks the transaction
// failed, commits, and returns billing.ErrAmountMismatch.
func (e *Engine) Settle(ctx context.Context, ev gateway.PaymentEvent) (*Result, error) {
	if strings.TrimSpace(ev.OrderID) == "" {
		return nil, fmt.Errorf("%w: order id is required", billing.ErrInvalidInput)
	}
	if ev.Status == gateway.StatusSucceeded && strings.TrimSpace(ev.PaymentID) == "" {
		return nil, fmt.Errorf("%w: gateway payment id is required", billing.ErrInvalidInput)
	}

	res, notice, err := e.settleOnce(ctx, ev)
	if errors.Is(err, store.ErrLiveSubscriptionExists) {
		// Another settlement created the user's live subscription between our
		// lookup and insert; the retry finds and extends it.
		res, notice, err = e.settleOnce(ctx, ev)
	}

	switch {
	case err == nil:
	case errors.Is(err, store.ErrLiveSubscriptionExists):
		// Lost the race twice; the payment stays uncaptured so the gateway
		// retry can settle it.
		return nil, fmt.Errorf("settle %s: %w", ev.OrderID, err)
	case errors.Is(err, billing.ErrConflict):
		e.log.Info("settlement replay absorbed",
			slog.String("order_id", ev.OrderID),
			slog.String("payment_id", ev.PaymentID),
			slog.String("reason", err.Error()),
		)
		txn, rerr := e.store.TransactionByOrderID(ctx, ev.OrderID)
		if rerr != nil {
			return nil, rerr
		}
		res, notice, err = &Result{Transaction: txn}, nil, nil
	case errors.Is(err, billing.ErrTransactionNotFound):
		e.log.Warn("settlement for unknown order",
			slog.String("gateway", ev.Gateway),
			slog.String("order_id", ev.OrderID),
			slog.String("payment_id", ev.PaymentID),
		)
		return nil, err
	case errors.Is(err, billing.ErrAmountMismatch):
	default:
		return nil, err
	}

	if res.Subscription == nil {
		res.Subscription = e.currentSubscription(ctx, res.Transaction.UserID)
	}
	if notice != nil {
		e.notifier.Notify(*notice)
	}
	if errors.Is(err, billing.ErrAmountMismatch) {
		e.log.Warn("settlement amount mismatch",
			slog.String("order_id", ev.OrderID),
			slog.String("payment_id", ev.PaymentID),
			slog.String("reason", res.Transaction.FailureReason),
		)
		return res, err
	}
	if res.Applied {
		e.log.Info("settlement applied",
			slog.String("order_id", ev.OrderID),
			slog.String("status", string(res.Transaction.Status)),
			slog.String("user_id", res.Transaction.UserID),
		)
	}
	return res, nil
}

// SettleConfirmed is the client verify path. The confirmation is checked
// before the order is looked up, so an unsigned request learns nothing about
// which orders exist. The caller must own the order.
func (e *Engine) SettleConfirmed(ctx context.Context, userID, orderID, paymentID, signature string) (*Result, error) {
	if e.confirmer == nil {
		return nil, errors.New("settlement: no checkout confirmer configured")
	}
	ev, err := e.confirmer.ConfirmCheckout(ctx, orderID, paymentID, signature)
	if err != nil {
		return nil, err
	}

	txn, err := e.store.TransactionByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if txn.UserID != userID {
		return nil, fmt.Errorf("%w: order belongs to another user", billing.ErrForbidden)
	}
	return e.Settle(ctx, *ev)
}

func (e *Engine) settleOnce(ctx context.Context, ev gateway.PaymentEvent) (*Result, *notify.Notice, error) {
	var (
		res      *Result
		notice   *notify.Notice
		mismatch error
	)

	err := e.store.InTx(ctx, func(tx *store.Store) error {
		txn, err := tx.LockTransactionByOrderID(ctx, ev.OrderID)
		if err != nil {
			return err
		}
		res = &Result{Transaction: txn}
		if txn.Status.Terminal() {
			return nil
		}

		// A wrong amount fails the order whatever status the event claims.
		now := e.now().UTC()
		if reason := amountMismatch(txn, ev); reason != "" {
			if err := tx.CloseTransaction(ctx, txn, billing.StatusFailed, reason, now); err != nil {
				return err
			}
			res.Applied = true
			mismatch = fmt.Errorf("%w: %s", billing.ErrAmountMismatch, reason)
			return nil
		}
		if ev.Status == gateway.StatusPending {
			return nil
		}

		switch ev.Status {
		case gateway.StatusSucceeded:
			if err := tx.CompleteTransaction(ctx, txn, ev.PaymentID, now); err != nil {
				return err
			}
			sub, n, err := applySubscription(ctx, tx, txn, now)
			if err != nil {
				return err
			}
			res.Subscription = sub
			notice = n

		case gateway.StatusFailed:
			reason := ev.FailureReason
			if reason == "" {
				reason = "payment failed at gateway"
			}
			if err := tx.CloseTransaction(ctx, txn, billing.StatusFailed, reason, now); err != nil {
				return err
			}

		case gateway.StatusRefunded:
			if err := tx.CloseTransaction(ctx, txn, billing.StatusRefunded, "refunded at gateway", now); err != nil {
				return err
			}
		}
		res.Applied = true
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return res, notice, mismatch
}

// amountMismatch returns a failure reason when the gateway reports a
// different amount or currency than the order recorded. Pending events that
// carry no amount have nothing to compare.
func amountMismatch(txn *billing.Transaction, ev gateway.PaymentEvent) string {
	if ev.AmountFromOrder || (ev.Status == gateway.StatusPending && ev.Amount == 0) {
		return ""
	}
	if ev.Amount != txn.Amount {
		return fmt.Sprintf("amount mismatch: expected %d %s, got %d %s", txn.Amount, txn.Currency, ev.Amount, ev.Currency)
	}
	if ev.Currency != "" && !strings.EqualFold(ev.Currency, txn.Currency) {
		return fmt.Sprintf("currency mismatch: expected %s, got %s", txn.Currency, ev.Currency)
	}
	return ""
}

func (e *Engine) currentSubscription(ctx context.Context, userID string) *subscriptions.Subscription {
	sub, err := e.store.CurrentSubscription(ctx, userID)
	if err != nil {
		if !errors.Is(err, billing.ErrSubscriptionNotFound) {
			e.log.Error("load subscription after settlement", slog.String("user_id", userID), slog.String("error", err.Error()))
		}
		return nil
	}
	return sub
}
