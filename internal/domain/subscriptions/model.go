package subscriptions

import (
	"time"

	"donation-platform/internal/domain/billing"
)

type Status string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Live statuses hold the per-user uniqueness slot.
func (s Status) Live() bool {
	return s == StatusTrial || s == StatusActive
}

type Actor string

const (
	ActorUser   Actor = "user"
	ActorAdmin  Actor = "admin"
	ActorSystem Actor = "system"
)

func (a Actor) Valid() bool {
	return a == ActorUser || a == ActorAdmin || a == ActorSystem
}

type Subscription struct {
	ID                 uint                 `json:"id" gorm:"primaryKey"`
	UserID             string               `json:"user_id" gorm:"not null;index"`
	ContactEmail       string               `json:"-"`
	PlanID             uint                 `json:"plan_id"`
	PlanTier           int                  `json:"plan_tier"`
	PlanName           string               `json:"plan_name"`
	BillingCycle       billing.BillingCycle `json:"billing_cycle" gorm:"type:varchar(16)"`
	Status             Status               `json:"status" gorm:"type:varchar(16);not null;index"`
	AutoRenew          bool                 `json:"auto_renew"`
	CurrentPeriodStart *time.Time           `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time           `json:"current_period_end,omitempty" gorm:"index"`
	CancelledAt        *time.Time           `json:"cancelled_at,omitempty"`
	CancelledBy        *Actor               `json:"cancelled_by,omitempty" gorm:"type:varchar(10)"`
	CancellationReason string               `json:"cancellation_reason,omitempty"`
	LastTransactionID  *uint                `json:"last_transaction_id,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// PeriodElapsed reports whether the paid (or trial) period is over at now.
// A subscription with no period end never elapses unless it was cancelled.
func (s *Subscription) PeriodElapsed(now time.Time) bool {
	if s.CurrentPeriodEnd == nil {
		return s.Status == StatusCancelled
	}
	return !now.Before(*s.CurrentPeriodEnd)
}
