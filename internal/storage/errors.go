package storage

import "errors"

// Sentinels shared by every store implementation. Backends wrap them so
// callers can match with errors.Is regardless of driver.
var (
	// ErrNotFound means the lookup matched no row, e.g. a wallet with no snapshot yet.
	ErrNotFound = errors.New("storage: not found")

	// ErrDuplicateKey means the natural key already exists. Event ingestion
	// treats it as "already recorded".
	ErrDuplicateKey = errors.New("storage: duplicate key")

	// ErrInvalidInput is returned before any I/O when a record is missing required fields.
	ErrInvalidInput = errors.New("storage: invalid input")

	ErrReadFailed  = errors.New("storage: read failed")
	ErrWriteFailed = errors.New("storage: write failed")
)
