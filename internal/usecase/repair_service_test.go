package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanleyluong/stanslist/internal/domain"
)

func repairCatalog() *domain.Catalog {
	return &domain.Catalog{
		Images: []domain.ImageCandidate{
			{ID: "desk", URL: "https://img.example.com/desk.jpg", Category: "other"},
			{ID: "monitor", URL: "https://img.example.com/monitor.jpg", Category: "electronics"},
		},
		RepairPool: []domain.ImageCandidate{
			{ID: "extra-1", URL: "https://img.example.com/extra-1.jpg", Category: "other"},
			{ID: "extra-2", URL: "https://img.example.com/extra-2.jpg", Category: "other"},
		},
		Overrides: []domain.TitleOverride{
			{Title: "Standing Desk", ImageID: "desk"},
		},
		Heuristics: []domain.HeuristicRule{
			{AllOf: []string{"dell", "monitor"}, ImageID: "monitor"},
		},
	}
}

func mustSweep(t *testing.T, svc *RepairService, listings []domain.Listing, catalog *domain.Catalog) *RepairPlan {
	t.Helper()
	plan, err := svc.SweepAndRepair(context.Background(), listings, catalog)
	require.NoError(t, err)
	return plan
}

func TestRepairService_SweepAndRepair(t *testing.T) {
	t.Run("broken url replaced by exact title override", func(t *testing.T) {
		verifier := MockVerifier{broken: map[string]bool{"u3": true}}
		svc := NewRepairService(verifier, nil)

		listings := []domain.Listing{
			{ID: "1", Title: "Standing Desk", Images: []string{"u3"}},
		}
		plan := mustSweep(t, svc, listings, repairCatalog())

		require.Len(t, plan.Updates, 1)
		assert.Equal(t, domain.ImagesUpdate("1", "https://img.example.com/desk.jpg"), plan.Updates[0])
		assert.Equal(t, 1, plan.Report.Scanned)
		assert.Equal(t, 1, plan.Report.NeedsRepair)
		assert.Equal(t, []domain.BrokenImage{{ListingID: "1", Title: "Standing Desk", URL: "u3"}}, plan.Report.BrokenImages)
		require.Len(t, plan.Report.Outcomes, 1)
		assert.Equal(t, sourceOverride, plan.Report.Outcomes[0].Source)
		assert.Equal(t, domain.StatusValid, plan.Report.Outcomes[0].Status)
	})

	t.Run("override matches loosely either way", func(t *testing.T) {
		svc := NewRepairService(MockVerifier{}, nil)
		plan := mustSweep(t, svc, []domain.Listing{
			{ID: "1", Title: "standing desk - adjustable height"},
			{ID: "2", Title: "desk"},
		}, repairCatalog())

		require.Len(t, plan.Updates, 2)
		assert.Equal(t, "desk", plan.Report.Outcomes[0].ImageID)
		// "desk" is contained in "standing desk", so the override applies again.
		assert.Equal(t, "desk", plan.Report.Outcomes[1].ImageID)
	})

	t.Run("brand and type heuristic", func(t *testing.T) {
		svc := NewRepairService(MockVerifier{}, nil)
		plan := mustSweep(t, svc, []domain.Listing{
			{ID: "1", Title: "Dell 27in Monitor"},
		}, repairCatalog())

		require.Len(t, plan.Report.Outcomes, 1)
		assert.Equal(t, sourceHeuristic, plan.Report.Outcomes[0].Source)
		assert.Equal(t, "monitor", plan.Report.Outcomes[0].ImageID)
	})

	t.Run("fallback pool preserves uniqueness", func(t *testing.T) {
		svc := NewRepairService(MockVerifier{}, nil)
		plan := mustSweep(t, svc, []domain.Listing{
			{ID: "1", Title: "Bird cage"},
			{ID: "2", Title: "Garden hose"},
			{ID: "3", Title: "Snow shovel"},
		}, repairCatalog())

		assert.Equal(t, "extra-1", plan.Report.Outcomes[0].ImageID)
		assert.Equal(t, "extra-2", plan.Report.Outcomes[1].ImageID)
		assert.Equal(t, domain.StatusUnresolved, plan.Report.Outcomes[2].Status)
		assert.Equal(t, 1, plan.Report.Unresolved)
		assert.Len(t, plan.Updates, 2)
	})

	t.Run("unreachable replacement is not used", func(t *testing.T) {
		verifier := MockVerifier{broken: map[string]bool{
			"https://img.example.com/desk.jpg":    true,
			"https://img.example.com/extra-1.jpg": true,
		}}
		svc := NewRepairService(verifier, nil)
		plan := mustSweep(t, svc, []domain.Listing{
			{ID: "1", Title: "Standing Desk"},
		}, repairCatalog())

		require.Len(t, plan.Report.Outcomes, 1)
		assert.Equal(t, sourceFallback, plan.Report.Outcomes[0].Source)
		assert.Equal(t, "extra-2", plan.Report.Outcomes[0].ImageID)
	})

	t.Run("healthy listings are left alone", func(t *testing.T) {
		svc := NewRepairService(MockVerifier{}, nil)
		plan := mustSweep(t, svc, []domain.Listing{
			{ID: "1", Title: "Standing Desk", Images: []string{"ok-1"}},
			{ID: "2", Title: "Bird cage", Images: []string{"ok-2", "ok-3"}},
		}, repairCatalog())

		assert.Empty(t, plan.Updates)
		assert.Equal(t, 2, plan.Report.Scanned)
		assert.Zero(t, plan.Report.NeedsRepair)
	})

	t.Run("any broken image marks the listing", func(t *testing.T) {
		svc := NewRepairService(MockVerifier{broken: map[string]bool{"bad": true}}, nil)
		plan := mustSweep(t, svc, []domain.Listing{
			{ID: "1", Title: "Bird cage", Images: []string{"ok", "bad"}},
		}, repairCatalog())

		assert.Equal(t, 1, plan.Report.NeedsRepair)
		assert.Len(t, plan.Updates, 1)
	})

	t.Run("nil catalog reports everything unresolved", func(t *testing.T) {
		svc := NewRepairService(MockVerifier{}, nil)
		plan := mustSweep(t, svc, []domain.Listing{{ID: "1", Title: "x"}}, nil)
		assert.Equal(t, 1, plan.Report.Unresolved)
	})
}

func TestRepairService_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMockStore(
		listingRecord("1", "Standing Desk", "other", "u3"),
		listingRecord("2", "Dell Monitor 24", "electronics"),
		listingRecord("3", "Bird cage", "pet-supplies", "https://img.example.com/ok.jpg"),
	)
	verifier := MockVerifier{broken: map[string]bool{"u3": true}}
	svc := NewRepairService(verifier, nil)
	writer := NewUpdateWriter(store, "listings", 0, nil)

	sweep := func() *RepairPlan {
		records, err := store.ListAll(ctx, "listings")
		require.NoError(t, err)
		var listings []domain.Listing
		for _, r := range records {
			listings = append(listings, domain.ListingFromRecord(r))
		}
		return mustSweep(t, svc, listings, repairCatalog())
	}

	first := sweep()
	require.Len(t, first.Updates, 2)
	for _, r := range writer.Write(ctx, first.Updates) {
		require.True(t, r.OK())
	}

	second := sweep()
	assert.Empty(t, second.Updates)
	assert.Zero(t, second.Report.NeedsRepair)
	assert.Equal(t, 3, second.Report.Scanned)
}

func TestRepairService_Cancelled(t *testing.T) {
	listings := []domain.Listing{
		{ID: "1", Title: "Standing Desk", Images: []string{"u1"}},
		{ID: "2", Title: "Dell Monitor 24", Images: []string{"u2"}},
		{ID: "3", Title: "Bird cage"},
	}

	t.Run("before the sweep", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		plan, err := NewRepairService(MockVerifier{}, nil).SweepAndRepair(ctx, listings, repairCatalog())
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, plan)
	})

	t.Run("while checking a listing", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		prober := NewMockProber(nil)
		prober.onHead = func(url string) {
			if url == "u2" {
				cancel()
			}
		}
		svc := NewRepairService(NewValidator(prober, nil, ValidatorConfig{}, nil), nil)

		plan, err := svc.SweepAndRepair(ctx, listings, repairCatalog())
		require.ErrorIs(t, err, context.Canceled)
		assert.Contains(t, err.Error(), "after 2 listings")
		assert.Nil(t, plan)
	})
}
