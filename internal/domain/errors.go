package domain

import "errors"

var (
	// ErrAppNotFound is returned for operations on an unknown app id.
	ErrAppNotFound = errors.New("app not found")

	// ErrLimitReached is returned when starting an app whose usage is
	// already at or over its limit. Expected and recoverable: the
	// caller surfaces it as a notification, not a failure.
	ErrLimitReached = errors.New("limit reached")

	// ErrInvalidInput is returned for negative or otherwise
	// out-of-range limit values, before any mutation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSnapshotNotFound is returned by a LedgerStore when no usable
	// snapshot exists. An unparseable snapshot is reported the same
	// way; the engine then starts from defaults.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
