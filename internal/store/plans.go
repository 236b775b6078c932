package store

import (
	"context"
	"fmt"

	"donation-platform/internal/domain/billing"
	"donation-platform/internal/domain/plans"
)

func (s *Store) ListPlans(ctx context.Context, activeOnly bool) ([]plans.Plan, error) {
	var list []plans.Plan
	q := s.conn(ctx).Model(&plans.Plan{})
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Order("tier ASC").Order("slug ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return list, nil
}

// PlanByID returns billing.ErrInvalidPlan when the plan does not exist.
func (s *Store) PlanByID(ctx context.Context, id uint) (*plans.Plan, error) {
	var p plans.Plan
	if err := s.conn(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err, billing.ErrInvalidPlan)
	}
	return &p, nil
}

// FreePlan returns the active plan with the lowest tier.
func (s *Store) FreePlan(ctx context.Context) (*plans.Plan, error) {
	list, err := s.ListPlans(ctx, true)
	if err != nil {
		return nil, err
	}
	low := plans.Lowest(list)
	if low == nil {
		return nil, billing.ErrInvalidPlan
	}
	return low, nil
}

// UpsertPlans inserts new plans and updates existing ones keyed by slug.
// Prices of an existing plan are only rewritten by the caller's intent;
// transactions carry their own snapshot.
func (s *Store) UpsertPlans(ctx context.Context, list []plans.Plan) (created, updated int, err error) {
	err = s.InTx(ctx, func(tx *Store) error {
		for _, p := range list {
			var existing plans.Plan
			res := tx.db.Where("slug = ?", p.Slug).Limit(1).Find(&existing)
			if res.Error != nil {
				return fmt.Errorf("find plan %s: %w", p.Slug, res.Error)
			}
			if res.RowsAffected == 0 {
				p.ID = 0
				if err := tx.db.Create(&p).Error; err != nil {
					return fmt.Errorf("create plan %s: %w", p.Slug, err)
				}
				created++
				continue
			}

			existing.Name = p.Name
			existing.Tier = p.Tier
			existing.MonthlyPrice = p.MonthlyPrice
			existing.YearlyPrice = p.YearlyPrice
			existing.Currency = p.Currency
			existing.Active = p.Active
			if p.StripeProductID != nil {
				existing.StripeProductID = p.StripeProductID
			}
			if err := tx.db.Save(&existing).Error; err != nil {
				return fmt.Errorf("update plan %s: %w", p.Slug, err)
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return created, updated, nil
}
