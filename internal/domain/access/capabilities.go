package access

import "donation-platform/internal/domain/plans"

// Authorizer answers capability checks for a verified identity.
type Authorizer interface {
	Requires(id Identity, c Capability) bool
}

// RoleAuthorizer grants capabilities by role claim.
type RoleAuthorizer struct {
	grants map[string][]Capability
}

func NewRoleAuthorizer() *RoleAuthorizer {
	return &RoleAuthorizer{grants: map[string][]Capability{
		"admin": {CapAdmin},
	}}
}

func (a *RoleAuthorizer) Requires(id Identity, c Capability) bool {
	for _, granted := range a.grants[id.Role] {
		if granted == c {
			return true
		}
	}
	return false
}

// PerksFor lists the supporter perks for an access state and plan tier.
func PerksFor(state AccessState, tier int) []string {
	if !state.HasPaidAccess() {
		return []string{}
	}
	if state == AccessTrial {
		return []string{"supporter_badge"}
	}

	switch {
	case tier >= plans.TierFree+2:
		return []string{"supporter_badge", "impact_reports", "partner_events"}
	case tier == plans.TierFree+1:
		return []string{"supporter_badge", "impact_reports"}
	default:
		return []string{"supporter_badge"}
	}
}
