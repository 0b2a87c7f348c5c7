package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stanleyluong/stanslist/config"
	"github.com/stanleyluong/stanslist/internal/domain"
	"github.com/stanleyluong/stanslist/internal/usecase"
)

const seed = `{
  "listings": [
    {"id": "l1", "title": "Tesla Model 3 2021", "description": "Long range, white", "category": "vehicles"},
    {"id": "l2", "title": "BMW 3 Series", "description": "Clean title", "category": "vehicles"}
  ]
}`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0644))

	return &config.Config{
		Server: config.ServerConfig{Environment: "test"},
		Store: config.StoreConfig{
			Driver:       "memory",
			Collection:   "listings",
			MaxBatchSize: 500,
			SeedFile:     path,
		},
		Matching: config.MatchingConfig{
			Strategy:   "weighted",
			Discipline: "consume",
		},
		Probe: config.ProbeConfig{
			Timeout:       time.Second,
			RatePerSecond: 10,
			Burst:         10,
			CacheTTL:      time.Minute,
		},
	}
}

func TestNew(t *testing.T) {
	t.Run("memory store seeded from snapshot runs an assignment", func(t *testing.T) {
		a, err := New(context.Background(), testConfig(t), zap.NewNop())
		require.NoError(t, err)
		defer a.Close()

		summary, err := a.Images.AssignImages(context.Background(), usecase.RunOptions{})
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Processed)
		assert.Equal(t, 2, summary.Matched)
		assert.Equal(t, 2, summary.Updated)

		records, err := a.Store.ListAll(context.Background(), "listings")
		require.NoError(t, err)
		require.Len(t, records, 2)

		tesla, _ := a.Catalog.Lookup("tesla-model-3")
		bmw, _ := a.Catalog.Lookup("bmw-3-series")
		assert.Equal(t, []string{tesla.URL}, domain.ListingFromRecord(records[0]).Images)
		assert.Equal(t, []string{bmw.URL}, domain.ListingFromRecord(records[1]).Images)
	})

	t.Run("keyword strategy uses the keyword catalog", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Matching.Strategy = "keyword"

		a, err := New(context.Background(), cfg, nil)
		require.NoError(t, err)
		defer a.Close()

		assert.Greater(t, len(a.Catalog.Images), 100)
	})

	t.Run("fails on a missing catalog file", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Matching.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")

		_, err := New(context.Background(), cfg, nil)
		assert.Error(t, err)
	})

	t.Run("fails on an invalid catalog file", func(t *testing.T) {
		cfg := testConfig(t)
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		require.NoError(t, os.WriteFile(path, []byte("images: []\n"), 0644))
		cfg.Matching.CatalogPath = path

		_, err := New(context.Background(), cfg, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidCatalog)
	})

	t.Run("fails on a missing seed file", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Store.SeedFile = filepath.Join(t.TempDir(), "nope.json")

		_, err := New(context.Background(), cfg, nil)
		assert.Error(t, err)
	})

	t.Run("fails on an unknown driver", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Store.Driver = "firestore"

		_, err := New(context.Background(), cfg, nil)
		assert.Error(t, err)
	})
}
