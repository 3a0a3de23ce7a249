package domain

import "errors"

// Sentinel errors returned by domain operations. Callers classify with
// errors.Is; transport layers map them to status codes.
var (
	// ErrInvalidLocation marks coordinates outside WGS-84 bounds or missing
	// entirely. The write is rejected before any merge is applied.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrMalformedInput marks a request missing a required field, such as a
	// repeater sighting without an id.
	ErrMalformedInput = errors.New("malformed input")

	// ErrStorageFailure wraps an unavailable or failing store. Writes and
	// reads are aborted; the core never retries silently.
	ErrStorageFailure = errors.New("storage failure")
)
