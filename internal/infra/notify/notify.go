// Package notify delivers best-effort subscription notices to users.
// Delivery is asynchronous and attempted at most once; a lost notice never
// affects billing state.
package notify

import (
	"context"
	"errors"
	"time"
)

type Kind string

const (
	KindActivated Kind = "activated"
	KindRenewed   Kind = "renewed"
	KindCancelled Kind = "cancelled"
	KindExpired   Kind = "expired"
	KindTrial     Kind = "trial_started"
)

type Notice struct {
	Kind      Kind
	UserID    string
	Email     string
	PlanName  string
	PeriodEnd *time.Time
	Reason    string
}

// Sender delivers one notice.
type Sender interface {
	Send(ctx context.Context, n Notice) error
}

// Notifier is what the billing components depend on.
type Notifier interface {
	Notify(n Notice)
}

var ErrNoRecipient = errors.New("notify: notice has no recipient")

// Nop discards notices.
type Nop struct{}

func (Nop) Notify(Notice) {}
