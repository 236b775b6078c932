package billing

import (
	"fmt"
	"strings"
	"time"
)

type BillingCycle string

const (
	CycleNone    BillingCycle = "none"
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

// ParseCycle accepts only the two purchasable cycles.
func ParseCycle(s string) (BillingCycle, error) {
	switch BillingCycle(strings.ToLower(strings.TrimSpace(s))) {
	case CycleMonthly:
		return CycleMonthly, nil
	case CycleYearly:
		return CycleYearly, nil
	}
	return "", fmt.Errorf("%w: billing cycle %q", ErrInvalidInput, s)
}

// Length is the paid period a single settlement buys.
func (c BillingCycle) Length() time.Duration {
	switch c {
	case CycleMonthly:
		return 30 * 24 * time.Hour
	case CycleYearly:
		return 365 * 24 * time.Hour
	}
	return 0
}
