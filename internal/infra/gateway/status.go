package gateway

import "strings"

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
	StatusPending   Status = "pending"
)

// NormalizeStatus maps a provider payment status onto the four outcomes
// settlement distinguishes. Unknown states are pending and change nothing.
func NormalizeStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "captured", "paid", "succeeded":
		return StatusSucceeded
	case "failed", "canceled", "cancelled":
		return StatusFailed
	case "refunded":
		return StatusRefunded
	default:
		return StatusPending
	}
}
