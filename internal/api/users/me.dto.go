package users

import "time"

type MeResponse struct {
	User    UserDTO    `json:"user"`
	Billing BillingDTO `json:"billing"`
	Access  AccessDTO  `json:"access"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID    string  `json:"id"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

/* ---------- BILLING ---------- */

type BillingDTO struct {
	Plan         *PlanDTO         `json:"plan"`
	Subscription *SubscriptionDTO `json:"subscription"`
	Trial        *TrialDTO        `json:"trial"`
}

type PlanDTO struct {
	ID       uint   `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Tier     int    `json:"tier"`
	Interval string `json:"interval"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
}

type SubscriptionDTO struct {
	ID               uint       `json:"id"`
	Status           string     `json:"status"`
	AutoRenew        bool       `json:"auto_renew"`
	StartsAt         *time.Time `json:"starts_at"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
}

type TrialDTO struct {
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
	DaysLeft *int       `json:"days_left"`
}

/* ---------- ACCESS ---------- */

type AccessDTO struct {
	State         string   `json:"state"` // trial|full|grace|free|locked
	HasPaidAccess bool     `json:"has_paid_access"`
	Perks         []string `json:"perks"`
}
