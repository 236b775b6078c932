package access

import (
	"time"

	"donation-platform/internal/domain/subscriptions"
)

type Policy struct {
	State AccessState `json:"state"`
	Perks []string    `json:"perks"`
}

func ComputePolicy(now time.Time, sub *subscriptions.Subscription) Policy {
	state := ComputeAccessState(now, sub)
	tier := 0
	if sub != nil {
		tier = sub.PlanTier
	}
	return Policy{
		State: state,
		Perks: PerksFor(state, tier),
	}
}
