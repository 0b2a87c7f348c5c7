// Package redis stores records as Redis hashes, one key per record, with every
// field value JSON-encoded.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/stanleyluong/stanslist/internal/domain"
	"github.com/stanleyluong/stanslist/internal/infrastructure/store"
)

// Compile-time check: Store implements domain.RecordStore.
var _ domain.RecordStore = (*Store)(nil)

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// Store implements domain.RecordStore via rueidis.
type Store struct {
	client rueidis.Client
	prefix string
}

// NewStore creates a Redis store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return newStore(client, cfg.KeyPrefix), nil
}

func newStore(client rueidis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Client exposes the underlying connection so the probe cache can share it
func (s *Store) Client() rueidis.Client {
	return s.client
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &store.Error{Op: store.OpPing, Err: err}
	}
	return nil
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := s.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for redis: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// MaxBatchSize reports the batch limit
func (s *Store) MaxBatchSize() int {
	return store.MaxBatchSize
}

// ListAll scans the collection's keys and fetches every hash, ordered by id
func (s *Store) ListAll(ctx context.Context, collection string) ([]domain.Record, error) {
	keys, err := s.scan(ctx, s.key(collection, "*"))
	if err != nil {
		return nil, &store.Error{Op: store.OpList, Collection: collection, Err: err}
	}
	sort.Strings(keys)

	records := make([]domain.Record, 0, len(keys))
	for start := 0; start < len(keys); start += store.MaxBatchSize {
		chunk := keys[start:min(start+store.MaxBatchSize, len(keys))]

		cmds := make([]rueidis.Completed, len(chunk))
		for i, key := range chunk {
			cmds[i] = s.client.B().Hgetall().Key(key).Build()
		}

		for i, res := range s.client.DoMulti(ctx, cmds...) {
			m, err := res.AsStrMap()
			if err != nil {
				return nil, &store.Error{Op: store.OpList, Collection: collection, Err: fmt.Errorf("key %s: %w", chunk[i], err)}
			}
			if len(m) == 0 {
				continue // deleted between SCAN and HGETALL
			}
			records = append(records, domain.Record{
				ID:     s.idFromKey(collection, chunk[i]),
				Fields: decodeFields(m),
			})
		}
	}
	return records, nil
}

// UpdateFields merges fields into an existing hash. Missing records are not created.
func (s *Store) UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error {
	results, err := s.BatchUpdate(ctx, collection, []domain.FieldUpdate{{ID: id, Fields: fields}})
	if err != nil {
		return err
	}
	if results[0].Err != nil {
		return results[0].Err
	}
	return nil
}

// BatchUpdate checks existence of every target in one round trip, then writes
// the existing ones in a second. Items fail independently.
func (s *Store) BatchUpdate(ctx context.Context, collection string, updates []domain.FieldUpdate) ([]domain.WriteResult, error) {
	if len(updates) == 0 {
		return nil, nil
	}
	if len(updates) > store.MaxBatchSize {
		return nil, &store.Error{
			Op:         store.OpBatch,
			Collection: collection,
			Err:        fmt.Errorf("batch of %d exceeds limit %d", len(updates), store.MaxBatchSize),
		}
	}

	results := make([]domain.WriteResult, len(updates))

	exists := make([]rueidis.Completed, len(updates))
	for i, u := range updates {
		exists[i] = s.client.B().Exists().Key(s.key(collection, u.ID)).Build()
	}

	var writes []rueidis.Completed
	var writeIdx []int
	for i, res := range s.client.DoMulti(ctx, exists...) {
		u := updates[i]
		results[i].ID = u.ID

		n, err := res.AsInt64()
		if err != nil {
			results[i].Err = &store.Error{Op: store.OpUpdate, Collection: collection, Err: err}
			continue
		}
		if n == 0 {
			results[i].Err = store.NotFound(collection, u.ID)
			continue
		}

		values, err := encodeFields(u.Fields)
		if err != nil {
			results[i].Err = &store.Error{Op: store.OpUpdate, Collection: collection, Err: err}
			continue
		}

		cmd := s.client.B().Hset().Key(s.key(collection, u.ID)).FieldValue()
		for _, f := range sortedKeys(values) {
			cmd = cmd.FieldValue(f, values[f])
		}
		writes = append(writes, cmd.Build())
		writeIdx = append(writeIdx, i)
	}

	if len(writes) == 0 {
		return results, nil
	}

	for j, res := range s.client.DoMulti(ctx, writes...) {
		if err := res.Error(); err != nil {
			results[writeIdx[j]].Err = &store.Error{Op: store.OpUpdate, Collection: collection, Err: err}
		}
	}
	return results, nil
}

// Put writes a full record, creating it when absent
func (s *Store) Put(ctx context.Context, collection string, rec domain.Record) error {
	values, err := encodeFields(rec.Fields)
	if err != nil {
		return &store.Error{Op: store.OpPut, Collection: collection, Err: err}
	}
	if len(values) == 0 {
		return &store.Error{Op: store.OpPut, Collection: collection, Err: fmt.Errorf("record %s has no fields", rec.ID)}
	}

	cmd := s.client.B().Hset().Key(s.key(collection, rec.ID)).FieldValue()
	for _, f := range sortedKeys(values) {
		cmd = cmd.FieldValue(f, values[f])
	}
	if err := s.client.Do(ctx, cmd.Build()).Error(); err != nil {
		return &store.Error{Op: store.OpPut, Collection: collection, Err: err}
	}
	return nil
}

func (s *Store) scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		cmd := s.client.B().Scan().Cursor(cursor).Match(pattern).Count(100).Build()
		res, err := s.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, err
		}
		keys = append(keys, res.Elements...)
		cursor = res.Cursor
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

func (s *Store) key(collection, id string) string {
	return s.prefix + collection + ":" + id
}

func (s *Store) idFromKey(collection, key string) string {
	return strings.TrimPrefix(key, s.prefix+collection+":")
}

func encodeFields(fields map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode field %s: %w", k, err)
		}
		out[k] = string(data)
	}
	return out, nil
}

// decodeFields reverses encodeFields. Values written by other tools that are not
// valid JSON are kept as plain strings.
func decodeFields(raw map[string]string) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			out[k] = v
			continue
		}
		out[k] = decoded
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
