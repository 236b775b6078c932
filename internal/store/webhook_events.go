package store

import (
	"context"
	"fmt"
	"time"

	"donation-platform/internal/domain/billing"
)

func (s *Store) RecordWebhookEvent(ctx context.Context, ev *billing.WebhookEvent) error {
	if ev.Outcome == "" {
		ev.Outcome = billing.OutcomeReceived
	}
	if err := s.conn(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("record webhook event: %w", err)
	}
	return nil
}

func (s *Store) SetWebhookOutcome(ctx context.Context, id uint, outcome billing.WebhookOutcome, errMsg string) error {
	err := s.conn(ctx).Model(&billing.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"outcome":    outcome,
			"error":      errMsg,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("update webhook event %d: %w", id, err)
	}
	return nil
}

func (s *Store) WebhookEvents(ctx context.Context, limit int) ([]billing.WebhookEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var list []billing.WebhookEvent
	if err := s.conn(ctx).Order("id DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list webhook events: %w", err)
	}
	return list, nil
}
