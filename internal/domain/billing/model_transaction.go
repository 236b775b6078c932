package billing

import "time"

type TransactionStatus string

const (
	StatusCreated   TransactionStatus = "created"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusRefunded  TransactionStatus = "refunded"
)

func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRefunded
}

// PlanSnapshot is copied from the plan when the order is created so later
// catalog edits never rewrite history.
type PlanSnapshot struct {
	Tier         int          `json:"tier"`
	Name         string       `json:"name"`
	Price        int64        `json:"price"`
	BillingCycle BillingCycle `json:"billing_cycle" gorm:"type:varchar(16)"`
}

type Invoice struct {
	BaseAmount int64 `json:"base_amount"`
	Tax        int64 `json:"tax"`
	Total      int64 `json:"total"`
}

type Transaction struct {
	ID               uint              `json:"id" gorm:"primaryKey"`
	OrderID          string            `json:"order_id" gorm:"not null;uniqueIndex:idx_transactions_order_id"`
	GatewayPaymentID *string           `json:"gateway_payment_id,omitempty" gorm:"uniqueIndex:idx_transactions_gateway_payment_id"`
	Gateway          string            `json:"gateway" gorm:"type:varchar(20);not null"`
	UserID           string            `json:"user_id" gorm:"not null;index"`
	ContactEmail     string            `json:"-"`
	PlanID           uint              `json:"plan_id"`
	Plan             PlanSnapshot      `json:"plan" gorm:"embedded;embeddedPrefix:plan_"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency" gorm:"type:varchar(3)"`
	Status           TransactionStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	Invoice          Invoice           `json:"invoice" gorm:"embedded;embeddedPrefix:invoice_"`
	FailureReason    string            `json:"failure_reason,omitempty"`
	SettledAt        *time.Time        `json:"settled_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}
