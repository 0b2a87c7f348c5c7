// Package store holds the record store backends used by image runs.
package store

import "github.com/stanleyluong/stanslist/internal/domain"

// Op names recorded on store errors for diagnostics
const (
	OpList   = "LIST"
	OpUpdate = "UPDATE"
	OpBatch  = "BATCH"
	OpPut    = "PUT"
	OpPing   = "PING"
	OpSchema = "SCHEMA"
)

// MaxBatchSize is the largest batch any backend accepts in one round trip
const MaxBatchSize = 500

// Error wraps an underlying error with the operation name.
type Error struct {
	Op         string
	Collection string
	Err        error
}

func (e *Error) Error() string {
	if e.Collection == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Collection + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound builds the per-record error returned when an update targets a missing id
func NotFound(collection, id string) error {
	return &Error{Op: OpUpdate, Collection: collection, Err: notFoundError{id: id}}
}

type notFoundError struct{ id string }

func (e notFoundError) Error() string { return domain.ErrRecordNotFound.Error() + ": " + e.id }
func (e notFoundError) Unwrap() error { return domain.ErrRecordNotFound }
