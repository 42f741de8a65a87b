package db

import "errors"

var (
	// ErrNotOpen is returned synchronously when a storage operation is
	// issued before Open has completed or after Close.
	ErrNotOpen = errors.New("db: database has not been opened")

	// ErrInvalidArgument is returned synchronously when an argument has
	// the wrong type or is missing. Wrapped errors carry the specifics.
	ErrInvalidArgument = errors.New("db: invalid argument")

	// ErrNotImplemented is returned by declared-but-unimplemented
	// operations so callers probing the surface get an explicit failure
	// instead of a silent no-op.
	ErrNotImplemented = errors.New("db: not implemented")
)
