package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/stanleyluong/stanslist/internal/domain"
	"github.com/stanleyluong/stanslist/internal/metrics"
)

// MaxBatchSize is the largest batch any store accepts
const MaxBatchSize = 500

// UpdateWriter commits field updates in disjoint chunks. Members of a failed or
// partially failed chunk are retried once individually; nothing is rolled back.
type UpdateWriter struct {
	store      domain.RecordStore
	collection string
	batchSize  int
	logger     *zap.Logger
}

// NewUpdateWriter creates a writer for one collection.
// batchSize is capped by both MaxBatchSize and the store's own limit.
func NewUpdateWriter(store domain.RecordStore, collection string, batchSize int, logger *zap.Logger) *UpdateWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	if limit := store.MaxBatchSize(); limit > 0 && batchSize > limit {
		batchSize = limit
	}
	return &UpdateWriter{
		store:      store,
		collection: collection,
		batchSize:  batchSize,
		logger:     logger.Named("writer"),
	}
}

// Write applies updates and returns one result per update, in input order.
// Each update must touch a different record.
func (w *UpdateWriter) Write(ctx context.Context, updates []domain.FieldUpdate) []domain.WriteResult {
	results := make([]domain.WriteResult, 0, len(updates))

	for start := 0; start < len(updates); start += w.batchSize {
		end := min(start+w.batchSize, len(updates))
		results = append(results, w.writeChunk(ctx, updates[start:end])...)
	}

	return results
}

func (w *UpdateWriter) writeChunk(ctx context.Context, chunk []domain.FieldUpdate) []domain.WriteResult {
	results := make([]domain.WriteResult, len(chunk))

	batchResults, err := w.store.BatchUpdate(ctx, w.collection, chunk)
	if err == nil && len(batchResults) != len(chunk) {
		err = fmt.Errorf("store returned %d results for %d updates", len(batchResults), len(chunk))
	}

	var retry []int
	if err != nil {
		w.logger.Warn("batch update failed, retrying members individually",
			zap.Int("size", len(chunk)), zap.Error(err))
		metrics.StoreWritesTotal.WithLabelValues("batch", "error").Add(float64(len(chunk)))
		for i := range chunk {
			retry = append(retry, i)
		}
	} else {
		for i, r := range batchResults {
			if r.OK() {
				results[i] = domain.WriteResult{ID: chunk[i].ID}
				metrics.StoreWritesTotal.WithLabelValues("batch", "ok").Inc()
				continue
			}
			metrics.StoreWritesTotal.WithLabelValues("batch", "error").Inc()
			retry = append(retry, i)
		}
		if len(retry) > 0 {
			w.logger.Warn("batch update partially failed",
				zap.Int("failed", len(retry)),
				zap.Int("size", len(chunk)),
				zap.Error(domain.ErrBatchPartialFailure))
		}
	}

	for _, i := range retry {
		results[i] = w.writeSingle(ctx, chunk[i])
	}
	return results
}

func (w *UpdateWriter) writeSingle(ctx context.Context, update domain.FieldUpdate) domain.WriteResult {
	err := w.store.UpdateFields(ctx, w.collection, update.ID, update.Fields)
	if err != nil {
		metrics.StoreWritesTotal.WithLabelValues("single", "error").Inc()
		if !errors.Is(err, domain.ErrUpdateFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrUpdateFailed, err)
		}
		w.logger.Warn("record update failed", zap.String("id", update.ID), zap.Error(err))
		return domain.WriteResult{ID: update.ID, Err: err}
	}
	metrics.StoreWritesTotal.WithLabelValues("single", "ok").Inc()
	return domain.WriteResult{ID: update.ID}
}
