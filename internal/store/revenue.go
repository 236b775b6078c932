package store

import (
	"context"
	"fmt"
	"time"

	"donation-platform/internal/domain/billing"
)

type TierRevenueRow struct {
	Tier     int
	Currency string
	Count    int64
	Amount   int64
}

type StatusCountRow struct {
	Status billing.TransactionStatus
	Count  int64
}

// RevenueByTier sums completed transactions per snapshot tier and currency.
func (s *Store) RevenueByTier(ctx context.Context, since *time.Time) ([]TierRevenueRow, error) {
	q := s.conn(ctx).Model(&billing.Transaction{}).
		Select("plan_tier AS tier, currency, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Where("status = ?", billing.StatusCompleted)
	if since != nil {
		q = q.Where("settled_at >= ?", *since)
	}

	var rows []TierRevenueRow
	if err := q.Group("plan_tier, currency").Order("plan_tier ASC").Order("currency ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("revenue by tier: %w", err)
	}
	return rows, nil
}

func (s *Store) CountByStatus(ctx context.Context, since *time.Time) ([]StatusCountRow, error) {
	q := s.conn(ctx).Model(&billing.Transaction{}).Select("status, COUNT(*) AS count")
	if since != nil {
		q = q.Where("created_at >= ?", *since)
	}

	var rows []StatusCountRow
	if err := q.Group("status").Order("status ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	return rows, nil
}
