package gateway

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v75"

	"donation-platform/internal/domain/plans"
)

// CatalogPrices imports active recurring prices into catalog plans. Prices
// are grouped by product; the product carries "slug" and "tier" metadata and
// its monthly and yearly prices fill the two price columns. Prices whose
// product lacks metadata are counted as skipped.
func (g *Stripe) CatalogPrices(ctx context.Context) ([]plans.Plan, int, error) {
	params := &stripe.PriceListParams{}
	params.Context = ctx
	params.Active = stripe.Bool(true)
	params.Type = stripe.String("recurring")
	params.AddExpand("data.product")

	byProduct := map[string]*plans.Plan{}
	var order []string
	skipped := 0

	it := g.api.Prices.List(params)
	for it.Next() {
		p := it.Price()
		if !p.Active || p.Recurring == nil || p.Product == nil || !p.Product.Active {
			skipped++
			continue
		}
		if p.Metadata["visible"] == "false" {
			skipped++
			continue
		}

		slug := strings.TrimSpace(p.Product.Metadata["slug"])
		tier, err := strconv.Atoi(p.Product.Metadata["tier"])
		if slug == "" || err != nil || tier < 1 {
			skipped++
			continue
		}

		plan, ok := byProduct[p.Product.ID]
		if !ok {
			productID := p.Product.ID
			plan = &plans.Plan{
				Slug:            slug,
				Name:            p.Product.Name,
				Tier:            tier,
				Currency:        strings.ToUpper(string(p.Currency)),
				Active:          true,
				StripeProductID: &productID,
			}
			byProduct[productID] = plan
			order = append(order, productID)
		}
		if !strings.EqualFold(plan.Currency, string(p.Currency)) {
			skipped++
			continue
		}

		switch p.Recurring.Interval {
		case stripe.PriceRecurringIntervalMonth:
			plan.MonthlyPrice = p.UnitAmount
		case stripe.PriceRecurringIntervalYear:
			plan.YearlyPrice = p.UnitAmount
		default:
			skipped++
		}
	}
	if err := it.Err(); err != nil {
		return nil, 0, fmt.Errorf("list stripe prices: %w", err)
	}

	out := make([]plans.Plan, 0, len(order))
	for _, id := range order {
		out = append(out, *byProduct[id])
	}
	plans.SortByTier(out)
	return out, skipped, nil
}
