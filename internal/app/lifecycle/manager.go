// Package lifecycle owns the user- and admin-driven subscription transitions
// and the expiry sweep.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"donation-platform/internal/domain/access"
	"donation-platform/internal/domain/billing"
	"donation-platform/internal/domain/plans"
	"donation-platform/internal/domain/subscriptions"
	"donation-platform/internal/infra/notify"
	"donation-platform/internal/store"
)

// MinAdminReasonLen is the shortest reason an admin cancellation accepts.
const MinAdminReasonLen = 10

type Config struct {
	TrialDays     int
	AutoDowngrade bool
}

type Manager struct {
	store    *store.Store
	log      *slog.Logger
	notifier notify.Notifier
	policy   *bluemonday.Policy
	now      func() time.Time
	cfg      Config
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

func NewManager(st *store.Store, log *slog.Logger, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		store:    st,
		log:      log,
		notifier: notify.Nop{},
		policy:   bluemonday.StrictPolicy(),
		now:      time.Now,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// plainText strips markup and stores the remaining text unescaped. JSON
// encoding escapes it again on the way out.
func (m *Manager) plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(m.policy.Sanitize(s)))
}

func (m *Manager) Get(ctx context.Context, id uint) (*subscriptions.Subscription, error) {
	return m.store.SubscriptionByID(ctx, id)
}

// Current returns the user's live subscription, or their most recent one.
func (m *Manager) Current(ctx context.Context, userID string) (*subscriptions.Subscription, error) {
	return m.store.CurrentSubscription(ctx, userID)
}

// Policy evaluates what the user's current subscription grants right now.
// A user with no subscription is locked.
func (m *Manager) Policy(ctx context.Context, userID string) (*subscriptions.Subscription, access.Policy, error) {
	sub, err := m.Current(ctx, userID)
	if err != nil && !errors.Is(err, billing.ErrSubscriptionNotFound) {
		return nil, access.Policy{}, err
	}
	return sub, access.ComputePolicy(m.now(), sub), nil
}

// Cancel stops renewal. Access continues until the current period ends and
// the sweep expires the subscription. Cancelling twice is a no-op.
func (m *Manager) Cancel(ctx context.Context, id uint, actor subscriptions.Actor, reason string) (*subscriptions.Subscription, error) {
	if !actor.Valid() {
		return nil, fmt.Errorf("%w: unknown actor %q", billing.ErrInvalidInput, actor)
	}
	reason = m.plainText(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: cancellation reason is required", billing.ErrInvalidInput)
	}
	if actor == subscriptions.ActorAdmin && utf8.RuneCountInString(reason) < MinAdminReasonLen {
		return nil, fmt.Errorf("%w: admin cancellation reason must be at least %d characters", billing.ErrInvalidInput, MinAdminReasonLen)
	}

	var (
		sub     *subscriptions.Subscription
		changed bool
	)
	err := m.store.InTx(ctx, func(tx *store.Store) error {
		var err error
		sub, err = tx.LockSubscriptionByID(ctx, id)
		if err != nil {
			return err
		}
		switch sub.Status {
		case subscriptions.StatusCancelled:
			return nil
		case subscriptions.StatusExpired:
			return fmt.Errorf("%w: subscription %d expired", billing.ErrAlreadyTerminal, id)
		}
		if !subscriptions.CanTransition(sub.Status, subscriptions.StatusCancelled) {
			return fmt.Errorf("%w: cannot cancel %s subscription", billing.ErrInvalidInput, sub.Status)
		}

		now := m.now().UTC()
		sub.Status = subscriptions.StatusCancelled
		sub.AutoRenew = false
		sub.CancelledAt = &now
		sub.CancelledBy = &actor
		sub.CancellationReason = reason
		changed = true
		return tx.SaveSubscription(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		m.log.Info("subscription cancelled",
			slog.Uint64("subscription_id", uint64(sub.ID)),
			slog.String("user_id", sub.UserID),
			slog.String("actor", string(actor)),
		)
		m.notifier.Notify(notify.Notice{
			Kind:      notify.KindCancelled,
			UserID:    sub.UserID,
			Email:     sub.ContactEmail,
			PlanName:  sub.PlanName,
			PeriodEnd: sub.CurrentPeriodEnd,
			Reason:    reason,
		})
	}
	return sub, nil
}

// CancelForUser cancels the caller's own current subscription.
func (m *Manager) CancelForUser(ctx context.Context, id access.Identity, reason string) (*subscriptions.Subscription, error) {
	sub, err := m.store.CurrentSubscription(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	return m.Cancel(ctx, sub.ID, subscriptions.ActorUser, reason)
}

// DowngradeToFree moves the user onto the free plan with no expiry. A paid
// live subscription is converted in place and stops renewing; a user with no
// live subscription gets a new free one.
func (m *Manager) DowngradeToFree(ctx context.Context, id access.Identity) (*subscriptions.Subscription, error) {
	var sub *subscriptions.Subscription
	err := m.store.InTx(ctx, func(tx *store.Store) error {
		free, err := tx.FreePlan(ctx)
		if err != nil {
			return err
		}
		now := m.now().UTC()

		sub, err = tx.LockLiveSubscription(ctx, id.UserID)
		switch {
		case err == nil:
			if sub.PlanID == free.ID && sub.Status == subscriptions.StatusActive {
				return nil
			}
			if sub.Status != subscriptions.StatusActive && !subscriptions.CanTransition(sub.Status, subscriptions.StatusActive) {
				return fmt.Errorf("%w: cannot downgrade %s subscription", billing.ErrInvalidInput, sub.Status)
			}
			applyFreePlan(sub, free, now)
			return tx.SaveSubscription(ctx, sub)
		case errors.Is(err, billing.ErrSubscriptionNotFound):
			sub = &subscriptions.Subscription{UserID: id.UserID, ContactEmail: id.Email}
			applyFreePlan(sub, free, now)
			return tx.CreateSubscription(ctx, sub)
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func applyFreePlan(sub *subscriptions.Subscription, free *plans.Plan, now time.Time) {
	sub.PlanID = free.ID
	sub.PlanTier = free.Tier
	sub.PlanName = free.Name
	sub.BillingCycle = billing.CycleNone
	sub.Status = subscriptions.StatusActive
	sub.AutoRenew = false
	sub.CurrentPeriodStart = &now
	sub.CurrentPeriodEnd = nil
}

// StartTrial grants a time-limited trial of a paid plan to a user who has
// never held a subscription.
func (m *Manager) StartTrial(ctx context.Context, id access.Identity, planID uint) (*subscriptions.Subscription, error) {
	if m.cfg.TrialDays <= 0 {
		return nil, fmt.Errorf("%w: trials are disabled", billing.ErrInvalidInput)
	}
	plan, err := m.store.PlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, billing.ErrInvalidPlan
	}
	if plan.IsFree() {
		return nil, fmt.Errorf("%w: the free plan has no trial", billing.ErrInvalidInput)
	}

	used, err := m.store.HasSubscriptionHistory(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, fmt.Errorf("%w: trial is only available to new supporters", billing.ErrInvalidInput)
	}

	now := m.now().UTC()
	end := now.AddDate(0, 0, m.cfg.TrialDays)
	sub := &subscriptions.Subscription{
		UserID:             id.UserID,
		ContactEmail:       id.Email,
		PlanID:             plan.ID,
		PlanTier:           plan.Tier,
		PlanName:           plan.Name,
		BillingCycle:       billing.CycleNone,
		Status:             subscriptions.StatusTrial,
		CurrentPeriodStart: &now,
		CurrentPeriodEnd:   &end,
	}
	if err := m.store.CreateSubscription(ctx, sub); err != nil {
		if errors.Is(err, store.ErrLiveSubscriptionExists) {
			return nil, fmt.Errorf("%w: trial is only available to new supporters", billing.ErrInvalidInput)
		}
		return nil, err
	}

	m.notifier.Notify(notify.Notice{
		Kind:      notify.KindTrial,
		UserID:    sub.UserID,
		Email:     sub.ContactEmail,
		PlanName:  sub.PlanName,
		PeriodEnd: sub.CurrentPeriodEnd,
	})
	return sub, nil
}

// SetAutoRenew toggles renewal on the caller's active paid subscription.
func (m *Manager) SetAutoRenew(ctx context.Context, id access.Identity, enabled bool) (*subscriptions.Subscription, error) {
	var sub *subscriptions.Subscription
	err := m.store.InTx(ctx, func(tx *store.Store) error {
		var err error
		sub, err = tx.LockLiveSubscription(ctx, id.UserID)
		if err != nil {
			return err
		}
		if sub.Status != subscriptions.StatusActive || sub.CurrentPeriodEnd == nil {
			return fmt.Errorf("%w: auto renew applies to active paid subscriptions", billing.ErrInvalidInput)
		}
		if sub.AutoRenew == enabled {
			return nil
		}
		sub.AutoRenew = enabled
		return tx.SaveSubscription(ctx, sub)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}
