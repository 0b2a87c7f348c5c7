package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanleyluong/stanslist/internal/domain"
)

func TestAuditService_Audit(t *testing.T) {
	ctx := context.Background()
	listings := []domain.Listing{
		{ID: "1", Category: "vehicles", Images: []string{"u1"}},
		{ID: "2", Category: "Vehicles", Images: []string{"u2"}},
		{ID: "3", Category: "electronics", Images: []string{"u1"}},
		{ID: "4", Category: "", Images: nil},
		{ID: "5", Title: "Lamp", Category: "other", Images: []string{"dead"}},
	}
	catalog := &domain.Catalog{Images: []domain.ImageCandidate{
		{ID: "a", URL: "u1"},
		{ID: "b", URL: "u1"},
		{ID: "c", URL: "u2"},
	}}

	t.Run("without probing", func(t *testing.T) {
		report := NewAuditService(nil).Audit(ctx, listings, catalog)

		assert.Equal(t, 5, report.TotalListings)
		assert.Equal(t, 4, report.WithImages)
		assert.Equal(t, []string{"4"}, report.WithoutImages)
		assert.Equal(t, 3, report.DistinctImages)
		require.Len(t, report.Collisions, 1)
		assert.Equal(t, domain.ImageUsage{URL: "u1", ListingIDs: []string{"1", "3"}}, report.Collisions[0])
		assert.InDelta(t, 66.67, report.UniquenessRate, 0.01)
		assert.Equal(t, map[string]int{"vehicles": 2, "electronics": 1, "unknown": 1, "other": 1}, report.ByCategory)
		assert.Equal(t, map[string][]string{"u1": {"a", "b"}}, report.CatalogDuplicates)
		assert.False(t, report.ProbedImages)
		assert.Empty(t, report.BrokenImages)
	})

	t.Run("with probing", func(t *testing.T) {
		report := NewAuditService(MockVerifier{broken: map[string]bool{"dead": true}}).Audit(ctx, listings, catalog)

		assert.True(t, report.ProbedImages)
		assert.Equal(t, []domain.BrokenImage{{ListingID: "5", Title: "Lamp", URL: "dead"}}, report.BrokenImages)
	})

	t.Run("empty store", func(t *testing.T) {
		report := NewAuditService(nil).Audit(ctx, nil, nil)
		assert.Zero(t, report.TotalListings)
		assert.Zero(t, report.UniquenessRate)
		assert.Nil(t, report.CatalogDuplicates)
	})
}

func TestFindCollisions_OrderedByUse(t *testing.T) {
	usage := map[string][]string{
		"a": {"1", "2"},
		"b": {"3"},
		"c": {"4", "5", "6"},
	}
	collisions := FindCollisions([]string{"a", "b", "c"}, usage)

	require.Len(t, collisions, 2)
	assert.Equal(t, "c", collisions[0].URL)
	assert.Equal(t, "a", collisions[1].URL)
}
