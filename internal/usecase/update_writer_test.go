package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanleyluong/stanslist/internal/domain"
)

func seededStore(n int) (*MockStore, []domain.FieldUpdate) {
	records := make([]domain.Record, 0, n)
	updates := make([]domain.FieldUpdate, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("l%04d", i)
		records = append(records, listingRecord(id, "Listing "+id, "other"))
		updates = append(updates, domain.ImagesUpdate(id, "https://img.example.com/"+id))
	}
	return NewMockStore(records...), updates
}

func TestNewUpdateWriter_BatchSize(t *testing.T) {
	store := NewMockStore()

	assert.Equal(t, MaxBatchSize, NewUpdateWriter(store, "listings", 0, nil).batchSize)
	assert.Equal(t, MaxBatchSize, NewUpdateWriter(store, "listings", 10000, nil).batchSize)
	assert.Equal(t, 50, NewUpdateWriter(store, "listings", 50, nil).batchSize)

	store.maxBatch = 20
	assert.Equal(t, 20, NewUpdateWriter(store, "listings", 50, nil).batchSize)
}

func TestUpdateWriter_Write(t *testing.T) {
	ctx := context.Background()

	t.Run("chunks into disjoint batches", func(t *testing.T) {
		store, updates := seededStore(1203)
		w := NewUpdateWriter(store, "listings", 0, nil)

		results := w.Write(ctx, updates)

		require.Len(t, results, len(updates))
		assert.Equal(t, []int{500, 500, 203}, store.batchSizes)
		assert.Zero(t, store.singleCalls)
		for i, r := range results {
			assert.True(t, r.OK())
			assert.Equal(t, updates[i].ID, r.ID)
		}
		assert.Equal(t, []string{"https://img.example.com/l1202"}, store.Images("l1202"))
	})

	t.Run("partial failure retries only failed members", func(t *testing.T) {
		store, updates := seededStore(5)
		store.failBatch["l0001"] = true
		store.failBatch["l0003"] = true
		store.failSingle["l0003"] = true

		results := NewUpdateWriter(store, "listings", 0, nil).Write(ctx, updates)

		assert.Equal(t, 2, store.singleCalls)
		assert.True(t, results[1].OK(), "l0001 should succeed on retry")
		assert.False(t, results[3].OK())
		assert.ErrorIs(t, results[3].Err, domain.ErrUpdateFailed)
		for _, i := range []int{0, 2, 4} {
			assert.True(t, results[i].OK())
		}
	})

	t.Run("whole batch error retries every member", func(t *testing.T) {
		store, updates := seededStore(4)
		store.batchErr = errors.New("deadline exceeded")

		results := NewUpdateWriter(store, "listings", 0, nil).Write(ctx, updates)

		assert.Equal(t, 4, store.singleCalls)
		for _, r := range results {
			assert.True(t, r.OK())
		}
	})

	t.Run("missing record is reported not aborted", func(t *testing.T) {
		store, updates := seededStore(2)
		updates = append(updates, domain.ImagesUpdate("ghost", "u"))
		updates = append(updates, domain.ImagesUpdate("l0001", "u2"))

		results := NewUpdateWriter(store, "listings", 2, nil).Write(ctx, updates)

		require.Len(t, results, 4)
		assert.ErrorIs(t, results[2].Err, domain.ErrRecordNotFound)
		assert.ErrorIs(t, results[2].Err, domain.ErrUpdateFailed)
		assert.True(t, results[3].OK())
		assert.Equal(t, []string{"u2"}, store.Images("l0001"))
	})

	t.Run("no updates", func(t *testing.T) {
		store := NewMockStore()
		assert.Empty(t, NewUpdateWriter(store, "listings", 0, nil).Write(ctx, nil))
		assert.Zero(t, store.batchCalls)
	})
}
