package domain

import "errors"

// Error taxonomy surfaced to API callers. Provider and store failures are
// wrapped with context at the call site; these sentinels mark the cases the
// boundary must distinguish.
var (
	// ErrUnsupportedFormat is returned before any chunk is produced when a
	// file extension has no registered loader.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEmptyQuery is returned when a query is blank.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrNotFound marks an unknown document id on read paths. Deletion is
	// idempotent and never returns it.
	ErrNotFound = errors.New("document not found")
)
