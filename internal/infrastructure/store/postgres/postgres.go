// Package postgres stores records as JSONB documents in a single table keyed
// by (collection, id).
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stanleyluong/stanslist/internal/domain"
	"github.com/stanleyluong/stanslist/internal/infrastructure/store"
)

// Compile-time check: Store implements domain.RecordStore.
var _ domain.RecordStore = (*Store)(nil)

// Config holds connection parameters for a Postgres store.
type Config struct {
	DSN      string
	MaxConns int
	Table    string
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Ping(ctx context.Context) error
}

// Store implements domain.RecordStore on a pgx pool.
type Store struct {
	db    querier
	pool  *pgxpool.Pool
	table string
}

// NewStore opens a connection pool. It does not wait for the server; call WaitForReady.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}

	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 4
	}
	pcfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	s := newStore(pool, cfg.Table)
	s.pool = pool
	return s, nil
}

func newStore(db querier, table string) *Store {
	if table == "" {
		table = "records"
	}
	return &Store{db: db, table: pgx.Identifier{table}.Sanitize()}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return &store.Error{Op: store.OpPing, Err: err}
	}
	return nil
}

// WaitForReady polls Ping until the server responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := s.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for postgres: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the records table when missing
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
		collection text NOT NULL,
		id text NOT NULL,
		fields jsonb NOT NULL DEFAULT '{}'::jsonb,
		updated_at timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (collection, id)
	)`)
	if err != nil {
		return &store.Error{Op: store.OpSchema, Err: err}
	}
	return nil
}

// MaxBatchSize reports the batch limit
func (s *Store) MaxBatchSize() int {
	return store.MaxBatchSize
}

// ListAll returns every record of the collection ordered by id
func (s *Store) ListAll(ctx context.Context, collection string) ([]domain.Record, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, fields FROM `+s.table+` WHERE collection = $1 ORDER BY id`, collection)
	if err != nil {
		return nil, &store.Error{Op: store.OpList, Collection: collection, Err: err}
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var id string
		var fields map[string]any
		if err := rows.Scan(&id, &fields); err != nil {
			return nil, &store.Error{Op: store.OpList, Collection: collection, Err: err}
		}
		if fields == nil {
			fields = map[string]any{}
		}
		records = append(records, domain.Record{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, &store.Error{Op: store.OpList, Collection: collection, Err: err}
	}
	return records, nil
}

// UpdateFields merges fields into the stored document. Missing records are not created.
func (s *Store) UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error {
	patch, err := encodePatch(fields)
	if err != nil {
		return &store.Error{Op: store.OpUpdate, Collection: collection, Err: err}
	}

	tag, err := s.db.Exec(ctx, s.updateSQL(), collection, id, patch)
	if err != nil {
		return &store.Error{Op: store.OpUpdate, Collection: collection, Err: err}
	}
	if tag.RowsAffected() == 0 {
		return store.NotFound(collection, id)
	}
	return nil
}

// BatchUpdate sends all updates in one pipeline. The pipeline runs in an implicit
// transaction, so a statement error fails the whole batch; a missing record does not.
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
	b := &pgx.Batch{}
	var queued []int

	for i, u := range updates {
		results[i].ID = u.ID
		patch, err := encodePatch(u.Fields)
		if err != nil {
			results[i].Err = &store.Error{Op: store.OpUpdate, Collection: collection, Err: err}
			continue
		}
		b.Queue(s.updateSQL(), collection, u.ID, patch)
		queued = append(queued, i)
	}

	if len(queued) == 0 {
		return results, nil
	}

	br := s.db.SendBatch(ctx, b)
	for _, i := range queued {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return nil, &store.Error{Op: store.OpBatch, Collection: collection, Err: err}
		}
		if tag.RowsAffected() == 0 {
			results[i].Err = store.NotFound(collection, updates[i].ID)
		}
	}
	if err := br.Close(); err != nil {
		return nil, &store.Error{Op: store.OpBatch, Collection: collection, Err: err}
	}
	return results, nil
}

// Put inserts or replaces a whole record
func (s *Store) Put(ctx context.Context, collection string, rec domain.Record) error {
	doc, err := encodePatch(rec.Fields)
	if err != nil {
		return &store.Error{Op: store.OpPut, Collection: collection, Err: err}
	}

	_, err = s.db.Exec(ctx, `INSERT INTO `+s.table+` (collection, id, fields)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET fields = EXCLUDED.fields, updated_at = now()`,
		collection, rec.ID, doc)
	if err != nil {
		return &store.Error{Op: store.OpPut, Collection: collection, Err: err}
	}
	return nil
}

func (s *Store) updateSQL() string {
	return `UPDATE ` + s.table + `
		SET fields = fields || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2`
}

// encodePatch renders fields as a JSON object string for a jsonb merge
func encodePatch(fields map[string]any) (string, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	return string(data), nil
}
