package analytics

import "errors"

var (
	// ErrInvalidArgument indicates a caller-supplied value that can
	// never be valid, such as a zero event id on ingestion.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound indicates no record exists for the requested key.
	// Metrics readers treat it as "no activity yet" and synthesize a
	// zero-valued result rather than surfacing it.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable indicates the backing store failed. It propagates
	// to callers unretried; the external scheduler owns retries.
	ErrUnavailable = errors.New("store unavailable")
)
