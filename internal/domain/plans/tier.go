package plans

import "sort"

// TierFree is the lowest rank; the catalog's free plan lives here.
const TierFree = 1

// Lowest returns the plan with the lowest tier among active plans, or nil.
func Lowest(list []Plan) *Plan {
	var low *Plan
	for i := range list {
		p := &list[i]
		if !p.Active {
			continue
		}
		if low == nil || p.Tier < low.Tier {
			low = p
		}
	}
	return low
}

// SortByTier orders plans by rank, then by slug for stable output.
func SortByTier(list []Plan) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Tier != list[j].Tier {
			return list[i].Tier < list[j].Tier
		}
		return list[i].Slug < list[j].Slug
	})
}
