// Package memory is an in-process record store, used for dry runs, tests and
// seeding from a JSON snapshot.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/stanleyluong/stanslist/internal/domain"
	"github.com/stanleyluong/stanslist/internal/infrastructure/store"
)

type collection struct {
	order   []string
	records map[string]map[string]any
}

// Store keeps records per collection in insertion order
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// New creates an empty store
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

// Put inserts or replaces a record. New ids are appended to the listing order.
func (s *Store) Put(collectionName string, rec domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collectionName)
	if _, ok := c.records[rec.ID]; !ok {
		c.order = append(c.order, rec.ID)
	}
	c.records[rec.ID] = copyFields(rec.Fields)
}

// ListAll returns a copy of every record in insertion order
func (s *Store) ListAll(ctx context.Context, collectionName string) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collectionName]
	if !ok {
		return nil, nil
	}

	out := make([]domain.Record, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, domain.Record{ID: id, Fields: copyFields(c.records[id])})
	}
	return out, nil
}

// UpdateFields merges fields into an existing record
func (s *Store) UpdateFields(ctx context.Context, collectionName, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(collectionName, id, fields)
}

// BatchUpdate applies each update independently and reports per-item results
func (s *Store) BatchUpdate(ctx context.Context, collectionName string, updates []domain.FieldUpdate) ([]domain.WriteResult, error) {
	if len(updates) > store.MaxBatchSize {
		return nil, &store.Error{
			Op:         store.OpBatch,
			Collection: collectionName,
			Err:        fmt.Errorf("batch of %d exceeds limit %d", len(updates), store.MaxBatchSize),
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]domain.WriteResult, len(updates))
	for i, u := range updates {
		results[i] = domain.WriteResult{ID: u.ID, Err: s.update(collectionName, u.ID, u.Fields)}
	}
	return results, nil
}

// MaxBatchSize reports the batch limit
func (s *Store) MaxBatchSize() int {
	return store.MaxBatchSize
}

// Len returns the number of records in a collection
func (s *Store) Len(collectionName string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[collectionName]; ok {
		return len(c.order)
	}
	return 0
}

// LoadSnapshotFile seeds the store from a JSON snapshot on disk
func (s *Store) LoadSnapshotFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return s.LoadSnapshot(f)
}

// LoadSnapshot seeds the store from a JSON object mapping collection names to
// arrays of records. Every record must carry a string "id"; the rest become fields.
func (s *Store) LoadSnapshot(r io.Reader) error {
	var snapshot map[string][]map[string]any
	if err := json.NewDecoder(r).Decode(&snapshot); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	for name, docs := range snapshot {
		for i, doc := range docs {
			id, ok := doc["id"].(string)
			if !ok || id == "" {
				return fmt.Errorf("snapshot %s[%d]: missing string id", name, i)
			}
			delete(doc, "id")
			s.Put(name, domain.Record{ID: id, Fields: doc})
		}
	}
	return nil
}

func (s *Store) update(collectionName, id string, fields map[string]any) error {
	c, ok := s.collections[collectionName]
	if !ok {
		return store.NotFound(collectionName, id)
	}
	rec, ok := c.records[id]
	if !ok {
		return store.NotFound(collectionName, id)
	}
	for k, v := range fields {
		rec[k] = v
	}
	return nil
}

func (s *Store) collection(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{records: make(map[string]map[string]any)}
		s.collections[name] = c
	}
	return c
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch vv := v.(type) {
		case []string:
			out[k] = append([]string(nil), vv...)
		case []any:
			out[k] = append([]any(nil), vv...)
		default:
			out[k] = v
		}
	}
	return out
}
