package plans

import (
	"time"

	"donation-platform/internal/domain/billing"
)

type Plan struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Slug            string    `json:"slug" gorm:"not null;uniqueIndex:idx_plans_slug"`
	Name            string    `json:"name" gorm:"not null"`
	Tier            int       `json:"tier" gorm:"not null;index"`
	MonthlyPrice    int64     `json:"monthly_price"`
	YearlyPrice     int64     `json:"yearly_price"`
	Currency        string    `json:"currency" gorm:"type:varchar(3);not null"`
	Active          bool      `json:"active" gorm:"not null"`
	StripeProductID *string   `json:"-" gorm:"column:stripe_product_id"`
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
}

// PriceFor returns the plan price for one billing cycle in minor units.
func (p *Plan) PriceFor(c billing.BillingCycle) int64 {
	switch c {
	case billing.CycleMonthly:
		return p.MonthlyPrice
	case billing.CycleYearly:
		return p.YearlyPrice
	}
	return 0
}

func (p *Plan) IsFree() bool {
	return p.MonthlyPrice == 0 && p.YearlyPrice == 0
}
