package billing

import "time"

type WebhookOutcome string

const (
	OutcomeReceived  WebhookOutcome = "received"
	OutcomeSettled   WebhookOutcome = "settled"
	OutcomeDuplicate WebhookOutcome = "duplicate"
	OutcomeIgnored   WebhookOutcome = "ignored"
	OutcomeFailed    WebhookOutcome = "failed"
)

// WebhookEvent is the durable receipt of a verified gateway delivery.
type WebhookEvent struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Gateway   string         `json:"gateway" gorm:"type:varchar(20);not null"`
	EventType string         `json:"event_type" gorm:"type:varchar(64)"`
	OrderID   string         `json:"order_id" gorm:"index"`
	PaymentID string         `json:"payment_id" gorm:"index"`
	Payload   string         `json:"-" gorm:"type:text"`
	Outcome   WebhookOutcome `json:"outcome" gorm:"type:varchar(16);not null"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
