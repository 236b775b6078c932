// Package storetest opens a migrated in-memory SQLite store for tests.
package storetest

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"donation-platform/database"
	"donation-platform/internal/domain/plans"
	"donation-platform/internal/store"
)

// Open returns a fresh store. A single connection keeps the in-memory
// database alive and serialises writers the way row locks would.
func Open(t testing.TB) (*store.Store, *gorm.DB) {
	t.Helper()
	db, err := database.Open(sqlite.Open(":memory:"), database.Options{MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.Migrate(db))
	return store.New(db), db
}

// Catalog is a small free/supporter/patron catalog in INR.
func Catalog() []plans.Plan {
	return []plans.Plan{
		{Slug: "free", Name: "Free", Tier: 1, Currency: "INR", Active: true},
		{Slug: "supporter", Name: "Supporter", Tier: 2, MonthlyPrice: 999, YearlyPrice: 9990, Currency: "INR", Active: true},
		{Slug: "patron", Name: "Patron", Tier: 3, MonthlyPrice: 2499, YearlyPrice: 24990, Currency: "INR", Active: true},
		{Slug: "retired", Name: "Retired", Tier: 2, MonthlyPrice: 499, YearlyPrice: 4990, Currency: "INR", Active: false},
	}
}

// Seed stores Catalog and returns the plans keyed by slug.
func Seed(t testing.TB, s *store.Store) map[string]plans.Plan {
	t.Helper()
	_, _, err := s.UpsertPlans(context.Background(), Catalog())
	require.NoError(t, err)

	list, err := s.ListPlans(context.Background(), false)
	require.NoError(t, err)
	out := make(map[string]plans.Plan, len(list))
	for _, p := range list {
		out[p.Slug] = p
	}
	return out
}
