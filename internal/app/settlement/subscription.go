package settlement

import (
	"context"
	"errors"
	"time"

	"donation-platform/internal/domain/billing"
	"donation-platform/internal/domain/subscriptions"
	"donation-platform/internal/infra/notify"
	"donation-platform/internal/store"
)

// applySubscription grants the period a completed transaction paid for:
// an active subscription is extended from max(now, current end), a trial is
// converted with a fresh period, and a user with no live subscription gets a
// new one.
func applySubscription(ctx context.Context, tx *store.Store, txn *billing.Transaction, now time.Time) (*subscriptions.Subscription, *notify.Notice, error) {
	length := txn.Plan.BillingCycle.Length()
	kind := notify.KindActivated

	sub, err := tx.LockLiveSubscription(ctx, txn.UserID)
	switch {
	case err == nil && sub.Status == subscriptions.StatusActive:
		start := now
		if sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.After(now) {
			start = *sub.CurrentPeriodEnd
			if sub.PlanID == txn.PlanID {
				kind = notify.KindRenewed
			}
		} else {
			sub.CurrentPeriodStart = &now
		}
		end := start.Add(length)
		sub.CurrentPeriodEnd = &end

	case err == nil && sub.Status == subscriptions.StatusTrial:
		end := now.Add(length)
		sub.Status = subscriptions.StatusActive
		sub.CurrentPeriodStart = &now
		sub.CurrentPeriodEnd = &end

	case errors.Is(err, billing.ErrSubscriptionNotFound):
		end := now.Add(length)
		sub = &subscriptions.Subscription{
			UserID:             txn.UserID,
			Status:             subscriptions.StatusActive,
			CurrentPeriodStart: &now,
			CurrentPeriodEnd:   &end,
		}

	default:
		return nil, nil, err
	}

	sub.PlanID = txn.PlanID
	sub.PlanTier = txn.Plan.Tier
	sub.PlanName = txn.Plan.Name
	sub.BillingCycle = txn.Plan.BillingCycle
	sub.AutoRenew = true
	sub.LastTransactionID = &txn.ID
	if txn.ContactEmail != "" {
		sub.ContactEmail = txn.ContactEmail
	}

	if sub.ID == 0 {
		err = tx.CreateSubscription(ctx, sub)
	} else {
		err = tx.SaveSubscription(ctx, sub)
	}
	if err != nil {
		return nil, nil, err
	}

	return sub, &notify.Notice{
		Kind:      kind,
		UserID:    sub.UserID,
		Email:     sub.ContactEmail,
		PlanName:  sub.PlanName,
		PeriodEnd: sub.CurrentPeriodEnd,
	}, nil
}
