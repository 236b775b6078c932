// Package revenue reports settled revenue from committed transactions.
package revenue

import (
	"context"
	"time"

	"donation-platform/internal/domain/billing"
	"donation-platform/internal/store"
)

type TierRevenue struct {
	Tier     int    `json:"tier"`
	Currency string `json:"currency"`
	Count    int64  `json:"count"`
	Amount   int64  `json:"amount"`
}

type Report struct {
	Since    *time.Time                          `json:"since,omitempty"`
	Counts   map[billing.TransactionStatus]int64 `json:"counts"`
	ByTier   []TierRevenue                       `json:"by_tier"`
	Totals   map[string]int64                    `json:"totals"`
	Complete int64                               `json:"completed"`
}

type Aggregator struct {
	store *store.Store
}

func NewAggregator(st *store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// Report counts transactions by status and sums completed revenue per plan
// tier and currency. Amounts are never summed across currencies.
func (a *Aggregator) Report(ctx context.Context, since *time.Time) (*Report, error) {
	counts, err := a.store.CountByStatus(ctx, since)
	if err != nil {
		return nil, err
	}
	rows, err := a.store.RevenueByTier(ctx, since)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Since: since,
		Counts: map[billing.TransactionStatus]int64{
			billing.StatusCreated:   0,
			billing.StatusCompleted: 0,
			billing.StatusFailed:    0,
			billing.StatusRefunded:  0,
		},
		ByTier: make([]TierRevenue, 0, len(rows)),
		Totals: map[string]int64{},
	}
	for _, c := range counts {
		r.Counts[c.Status] = c.Count
	}
	for _, row := range rows {
		r.ByTier = append(r.ByTier, TierRevenue(row))
		r.Totals[row.Currency] += row.Amount
		r.Complete += row.Count
	}
	return r, nil
}
