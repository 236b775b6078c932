package users

import (
	"time"

	"donation-platform/internal/domain/access"
	"donation-platform/internal/domain/billing"
	"donation-platform/internal/domain/plans"
	"donation-platform/internal/domain/subscriptions"
)

// BuildPlanDTO describes the plan the subscription is on, priced for its
// billing cycle. The free plan has no interval.
func BuildPlanDTO(p *plans.Plan, sub *subscriptions.Subscription) *PlanDTO {
	if p == nil || sub == nil {
		return nil
	}
	interval := ""
	if sub.BillingCycle != billing.CycleNone {
		interval = string(sub.BillingCycle)
	}
	return &PlanDTO{
		ID:       p.ID,
		Slug:     p.Slug,
		Name:     sub.PlanName,
		Tier:     sub.PlanTier,
		Interval: interval,
		Price:    p.PriceFor(sub.BillingCycle),
		Currency: p.Currency,
	}
}

func BuildSubscriptionDTO(sub *subscriptions.Subscription) *SubscriptionDTO {
	if sub == nil {
		return nil
	}
	return &SubscriptionDTO{
		ID:               sub.ID,
		Status:           string(sub.Status),
		AutoRenew:        sub.AutoRenew,
		StartsAt:         sub.CurrentPeriodStart,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
		CancelledAt:      sub.CancelledAt,
	}
}

func BuildTrialDTO(now time.Time, sub *subscriptions.Subscription) *TrialDTO {
	if sub == nil || sub.Status != subscriptions.StatusTrial {
		return nil
	}
	start, end := sub.CurrentPeriodStart, sub.CurrentPeriodEnd
	if start == nil || end == nil {
		return nil
	}

	d := 0
	if now.Before(*end) {
		d = int(end.Sub(now).Hours() / 24)
	}
	return &TrialDTO{
		StartsAt: start,
		EndsAt:   end,
		DaysLeft: &d,
	}
}

func BuildAccessDTO(policy access.Policy) AccessDTO {
	perks := policy.Perks
	if perks == nil {
		perks = []string{}
	}
	return AccessDTO{
		State:         string(policy.State),
		HasPaidAccess: policy.State.HasPaidAccess(),
		Perks:         perks,
	}
}
