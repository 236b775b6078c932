package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"donation-platform/internal/domain/billing"
	"donation-platform/internal/domain/subscriptions"
	"donation-platform/internal/infra/notify"
	"donation-platform/internal/store"
)

const sweepBatch = 500

// ExpireDue expires cancelled subscriptions whose period has ended and trials
// that ran out. Each row moves with a conditional update on its prior status,
// so a concurrent settlement on the same row wins cleanly.
func (m *Manager) ExpireDue(ctx context.Context) (int, error) {
	now := m.now().UTC()
	expired := 0

	for {
		due, err := m.store.DueForExpiry(ctx, now, sweepBatch)
		if err != nil {
			return expired, err
		}

		progressed := false
		for i := range due {
			sub := &due[i]
			ok, err := m.store.TransitionStatus(ctx, sub.ID, sub.Status, subscriptions.StatusExpired, now)
			if err != nil {
				return expired, err
			}
			if !ok {
				continue
			}
			progressed = true
			expired++

			m.notifier.Notify(notify.Notice{
				Kind:     notify.KindExpired,
				UserID:   sub.UserID,
				Email:    sub.ContactEmail,
				PlanName: sub.PlanName,
			})
			if m.cfg.AutoDowngrade {
				if err := m.ensureFree(ctx, sub); err != nil {
					m.log.Error("downgrade after expiry",
						slog.String("user_id", sub.UserID),
						slog.String("error", err.Error()),
					)
				}
			}
		}

		if len(due) < sweepBatch || !progressed {
			break
		}
	}

	if expired > 0 {
		m.log.Info("subscriptions expired", slog.Int("count", expired))
	}
	return expired, nil
}

// ensureFree gives an expired user the free plan unless they already hold a
// live subscription again.
func (m *Manager) ensureFree(ctx context.Context, expired *subscriptions.Subscription) error {
	return m.store.InTx(ctx, func(tx *store.Store) error {
		_, err := tx.LockLiveSubscription(ctx, expired.UserID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, billing.ErrSubscriptionNotFound) {
			return err
		}

		free, err := tx.FreePlan(ctx)
		if err != nil {
			return err
		}
		sub := &subscriptions.Subscription{UserID: expired.UserID, ContactEmail: expired.ContactEmail}
		applyFreePlan(sub, free, m.now().UTC())
		err = tx.CreateSubscription(ctx, sub)
		if errors.Is(err, store.ErrLiveSubscriptionExists) {
			return nil
		}
		return err
	})
}

// Sweeper runs ExpireDue on a fixed interval.
type Sweeper struct {
	manager  *Manager
	log      *slog.Logger
	interval time.Duration
}

func NewSweeper(m *Manager, log *slog.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Sweeper{manager: m, log: log, interval: interval}
}

// Run sweeps immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.manager.ExpireDue(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("expiry sweep failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
