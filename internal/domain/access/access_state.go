package access

import (
	"time"

	"donation-platform/internal/domain/subscriptions"
)

// ComputeAccessState derives what a subscription grants at now.
// Cancelled subscriptions keep access until the paid-through end.
func ComputeAccessState(now time.Time, sub *subscriptions.Subscription) AccessState {
	if sub == nil {
		return AccessLocked
	}

	switch sub.Status {
	case subscriptions.StatusTrial:
		if sub.PeriodElapsed(now) {
			return AccessLocked
		}
		return AccessTrial

	case subscriptions.StatusActive:
		if sub.CurrentPeriodEnd == nil {
			return AccessFree
		}
		if sub.PeriodElapsed(now) {
			return AccessLocked
		}
		return AccessFull

	case subscriptions.StatusCancelled:
		if sub.PeriodElapsed(now) {
			return AccessLocked
		}
		return AccessGrace

	default:
		return AccessLocked
	}
}
