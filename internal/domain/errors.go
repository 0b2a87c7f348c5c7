package domain

import "errors"

var (
	// ErrInvalidCatalog is returned when the image catalog is malformed (duplicate ids, missing fields, dangling references)
	ErrInvalidCatalog = errors.New("invalid image catalog")

	// ErrNoMatch marks a listing for which no candidate scored above zero
	ErrNoMatch = errors.New("no matching image")

	// ErrImageUnreachable is recorded when a probe of an image URL fails or returns a non-2xx status
	ErrImageUnreachable = errors.New("image unreachable")

	// ErrUpdateFailed is returned when a single record write fails
	ErrUpdateFailed = errors.New("record update failed")

	// ErrBatchPartialFailure is returned when some members of a batch write fail
	ErrBatchPartialFailure = errors.New("batch partially failed")

	// ErrRecordNotFound is returned when an update targets a record that does not exist
	ErrRecordNotFound = errors.New("record not found")

	// ErrStoreUnavailable is returned when the record store cannot be reached
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrRunInProgress is returned when a run is requested while another one is active
	ErrRunInProgress = errors.New("a run is already in progress")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
