package repository

import "errors"

var (
	// ErrNotFound marks lookups for records that do not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists marks writes that would overwrite immutable state.
	ErrAlreadyExists = errors.New("already exists")

	// ErrVersionConflict marks a prediction that does not extend its chain.
	ErrVersionConflict = errors.New("version conflict")

	// ErrInvalidRecord marks writes missing required identifiers.
	ErrInvalidRecord = errors.New("invalid record")
)
