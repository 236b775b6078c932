package access_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"donation-platform/internal/domain/access"
	"donation-platform/internal/domain/subscriptions"
)

func TestComputeAccessState(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	later := now.Add(48 * time.Hour)
	earlier := now.Add(-48 * time.Hour)

	cases := []struct {
		name string
		sub  *subscriptions.Subscription
		want access.AccessState
	}{
		{"none", nil, access.AccessLocked},
		{"trial running", &subscriptions.Subscription{Status: subscriptions.StatusTrial, CurrentPeriodEnd: &later}, access.AccessTrial},
		{"trial over", &subscriptions.Subscription{Status: subscriptions.StatusTrial, CurrentPeriodEnd: &earlier}, access.AccessLocked},
		{"paid active", &subscriptions.Subscription{Status: subscriptions.StatusActive, CurrentPeriodEnd: &later}, access.AccessFull},
		{"paid lapsed", &subscriptions.Subscription{Status: subscriptions.StatusActive, CurrentPeriodEnd: &earlier}, access.AccessLocked},
		{"free", &subscriptions.Subscription{Status: subscriptions.StatusActive}, access.AccessFree},
		{"cancelled in grace", &subscriptions.Subscription{Status: subscriptions.StatusCancelled, CurrentPeriodEnd: &later}, access.AccessGrace},
		{"cancelled lapsed", &subscriptions.Subscription{Status: subscriptions.StatusCancelled, CurrentPeriodEnd: &earlier}, access.AccessLocked},
		{"expired", &subscriptions.Subscription{Status: subscriptions.StatusExpired, CurrentPeriodEnd: &later}, access.AccessLocked},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, access.ComputeAccessState(now, tc.sub))
		})
	}
}

func TestComputePolicyPerks(t *testing.T) {
	now := time.Now()
	end := now.Add(time.Hour)

	p := access.ComputePolicy(now, &subscriptions.Subscription{Status: subscriptions.StatusActive, PlanTier: 3, CurrentPeriodEnd: &end})
	assert.Equal(t, access.AccessFull, p.State)
	assert.Contains(t, p.Perks, "partner_events")

	p = access.ComputePolicy(now, &subscriptions.Subscription{Status: subscriptions.StatusActive, PlanTier: 1})
	assert.Equal(t, access.AccessFree, p.State)
	assert.Empty(t, p.Perks)

	p = access.ComputePolicy(now, nil)
	assert.Equal(t, access.AccessLocked, p.State)
	assert.Empty(t, p.Perks)
}

func TestRoleAuthorizer(t *testing.T) {
	authz := access.NewRoleAuthorizer()
	assert.True(t, authz.Requires(access.Identity{UserID: "1", Role: "admin"}, access.CapAdmin))
	assert.False(t, authz.Requires(access.Identity{UserID: "2", Role: "user"}, access.CapAdmin))
	assert.False(t, authz.Requires(access.Identity{UserID: "3"}, access.CapAdmin))
}
