package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"donation-platform/internal/domain/billing"
	"donation-platform/internal/domain/subscriptions"
)

var liveStatuses = []subscriptions.Status{subscriptions.StatusTrial, subscriptions.StatusActive}

func (s *Store) CreateSubscription(ctx context.Context, sub *subscriptions.Subscription) error {
	if err := s.conn(ctx).Create(sub).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrLiveSubscriptionExists
		}
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (s *Store) SaveSubscription(ctx context.Context, sub *subscriptions.Subscription) error {
	if err := s.conn(ctx).Save(sub).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrLiveSubscriptionExists
		}
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

func (s *Store) SubscriptionByID(ctx context.Context, id uint) (*subscriptions.Subscription, error) {
	var sub subscriptions.Subscription
	if err := s.conn(ctx).First(&sub, id).Error; err != nil {
		return nil, notFound(err, billing.ErrSubscriptionNotFound)
	}
	return &sub, nil
}

func (s *Store) LockSubscriptionByID(ctx context.Context, id uint) (*subscriptions.Subscription, error) {
	var sub subscriptions.Subscription
	if err := s.conn(ctx).Clauses(forUpdate()).First(&sub, id).Error; err != nil {
		return nil, notFound(err, billing.ErrSubscriptionNotFound)
	}
	return &sub, nil
}

// LockLiveSubscription returns the user's trial/active subscription with a
// row lock, or billing.ErrSubscriptionNotFound.
func (s *Store) LockLiveSubscription(ctx context.Context, userID string) (*subscriptions.Subscription, error) {
	var sub subscriptions.Subscription
	err := s.conn(ctx).Clauses(forUpdate()).
		Where("user_id = ? AND status IN ?", userID, liveStatuses).
		First(&sub).Error
	if err != nil {
		return nil, notFound(err, billing.ErrSubscriptionNotFound)
	}
	return &sub, nil
}

// CurrentSubscription prefers the live subscription and otherwise returns the
// most recent one, so cancelled-in-grace and expired records stay visible.
func (s *Store) CurrentSubscription(ctx context.Context, userID string) (*subscriptions.Subscription, error) {
	var sub subscriptions.Subscription
	err := s.conn(ctx).
		Where("user_id = ? AND status IN ?", userID, liveStatuses).
		First(&sub).Error
	if err == nil {
		return &sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = s.conn(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		First(&sub).Error
	if err != nil {
		return nil, notFound(err, billing.ErrSubscriptionNotFound)
	}
	return &sub, nil
}

func (s *Store) HasSubscriptionHistory(ctx context.Context, userID string) (bool, error) {
	var n int64
	if err := s.conn(ctx).Model(&subscriptions.Subscription{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("count subscriptions: %w", err)
	}
	return n > 0, nil
}

// TransitionStatus applies from -> to only if the row is still in from, so
// sweeps and settlements racing on the same row cannot clobber each other.
func (s *Store) TransitionStatus(ctx context.Context, id uint, from, to subscriptions.Status, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	if to == subscriptions.StatusExpired {
		updates["auto_renew"] = false
	}
	res := s.conn(ctx).Model(&subscriptions.Subscription{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("transition subscription %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// DueForExpiry lists cancelled subscriptions whose paid period has ended and
// trials that ran out.
func (s *Store) DueForExpiry(ctx context.Context, now time.Time, limit int) ([]subscriptions.Subscription, error) {
	if limit <= 0 {
		limit = 500
	}
	var list []subscriptions.Subscription
	err := s.conn(ctx).
		Where("(status = ? AND (current_period_end IS NULL OR current_period_end <= ?)) OR (status = ? AND current_period_end <= ?)",
			subscriptions.StatusCancelled, now, subscriptions.StatusTrial, now).
		Order("id ASC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("due for expiry: %w", err)
	}
	return list, nil
}
