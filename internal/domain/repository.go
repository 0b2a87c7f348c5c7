package domain

import (
	"context"
	"time"
)

// CacheRepository stores values with a TTL. Get returns ErrCacheMiss for absent or expired keys.
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// RecordStore is the backing data store of the marketplace.
// BatchUpdate never applies more than MaxBatchSize updates; results are aligned with the input.
// A non-nil error from BatchUpdate means the whole batch failed.
type RecordStore interface {
	ListAll(ctx context.Context, collection string) ([]Record, error)
	UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error
	BatchUpdate(ctx context.Context, collection string, updates []FieldUpdate) ([]WriteResult, error)
	MaxBatchSize() int
}

// Prober performs a header-only fetch of a URL and reports the status code.
// The timeout is owned by the implementation.
type Prober interface {
	Head(ctx context.Context, url string) (int, error)
}

// Matcher selects the best candidate for a text blob
type Matcher interface {
	Match(text string, candidates []ImageCandidate) MatchResult
}

// Allocator assigns images to a sequence of listings
type Allocator interface {
	Assign(listings []Listing, catalog *Catalog) *AllocationPlan
}
