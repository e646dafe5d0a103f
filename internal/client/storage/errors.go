package storage

import "errors"

// Common client storage errors
var (
	// ErrNotFound indicates that no value exists for the requested key
	ErrNotFound = errors.New("credential not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
