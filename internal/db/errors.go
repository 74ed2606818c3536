package db

import "errors"

// Domain-level database error sentinels.
var (
	// Lookup errors
	ErrNotFound      = errors.New("record not found")
	ErrInvalidRecord = errors.New("invalid record")

	// Setup errors
	ErrUnknownDriver = errors.New("unknown database driver")
)
