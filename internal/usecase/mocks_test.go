package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stanleyluong/stanslist/internal/domain"
)

// MockProber answers HEAD requests from a fixed status table
type MockProber struct {
	mu       sync.Mutex
	statuses map[string]int
	errs     map[string]error
	calls    map[string]int
	onHead   func(url string)
}

func NewMockProber(statuses map[string]int) *MockProber {
	return &MockProber{
		statuses: statuses,
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (m *MockProber) Head(ctx context.Context, url string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[url]++
	if m.onHead != nil {
		m.onHead(url)
	}
	if err, ok := m.errs[url]; ok {
		return 0, err
	}
	if status, ok := m.statuses[url]; ok {
		return status, nil
	}
	return 200, nil
}

func (m *MockProber) Calls(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[url]
}

// MockVerifier treats every URL in broken as unreachable
type MockVerifier struct {
	broken map[string]bool
}

func (m MockVerifier) Verify(ctx context.Context, url string) bool {
	return url != "" && !m.broken[url]
}

// MockCache is a map-backed CacheRepository without expiry
type MockCache struct {
	data map[string]interface{}
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string]interface{})}
}

func (m *MockCache) Get(ctx context.Context, key string) (interface{}, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.data[key] = value
	return nil
}

// MockStore is an in-memory RecordStore with injectable failures
type MockStore struct {
	mu         sync.Mutex
	records    map[string]map[string]any
	order      []string
	listErr    error
	batchErr   error
	failBatch  map[string]bool // ids that fail inside a batch
	failSingle map[string]bool // ids that fail on individual update
	maxBatch   int

	batchCalls  int
	singleCalls int
	batchSizes  []int
}

func NewMockStore(records ...domain.Record) *MockStore {
	s := &MockStore{
		records:    make(map[string]map[string]any),
		failBatch:  make(map[string]bool),
		failSingle: make(map[string]bool),
		maxBatch:   MaxBatchSize,
	}
	for _, r := range records {
		s.records[r.ID] = r.Fields
		s.order = append(s.order, r.ID)
	}
	return s
}

func (s *MockStore) ListAll(ctx context.Context, collection string) ([]domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.Record, 0, len(s.order))
	for _, id := range s.order {
		fields := make(map[string]any, len(s.records[id]))
		for k, v := range s.records[id] {
			fields[k] = v
		}
		out = append(out, domain.Record{ID: id, Fields: fields})
	}
	return out, nil
}

func (s *MockStore) UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.singleCalls++
	return s.apply(id, fields, s.failSingle)
}

func (s *MockStore) BatchUpdate(ctx context.Context, collection string, updates []domain.FieldUpdate) ([]domain.WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchCalls++
	s.batchSizes = append(s.batchSizes, len(updates))
	if s.batchErr != nil {
		return nil, s.batchErr
	}
	results := make([]domain.WriteResult, len(updates))
	for i, u := range updates {
		results[i] = domain.WriteResult{ID: u.ID, Err: s.apply(u.ID, u.Fields, s.failBatch)}
	}
	return results, nil
}

func (s *MockStore) MaxBatchSize() int {
	return s.maxBatch
}

func (s *MockStore) apply(id string, fields map[string]any, fail map[string]bool) error {
	if fail[id] {
		return errors.New("permission denied")
	}
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
	}
	for k, v := range fields {
		rec[k] = v
	}
	return nil
}

func (s *MockStore) Images(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ListingFromRecord(domain.Record{ID: id, Fields: s.records[id]}).Images
}

func listingRecord(id, title, category string, images ...string) domain.Record {
	fields := map[string]any{
		domain.FieldTitle:    title,
		domain.FieldCategory: category,
	}
	if len(images) > 0 {
		fields[domain.FieldImages] = images
	}
	return domain.Record{ID: id, Fields: fields}
}

func candidateIDs(candidates []domain.ImageCandidate) []string {
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)
	return ids
}
