// Package apperr provides centralized error definitions for the
// application. Errors are organized by domain to avoid duplication and
// provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): use for errors that callers need to check
//     with errors.Is.
//   - Every sentinel error is defined as a variable, never an inline
//     errors.New call.
//   - Use fmt.Errorf with %w to wrap a sentinel with context.
package apperr

import "errors"

// Request validation errors. Map to HTTP 400.
var (
	ErrValidation = errors.New("validation failed")
)

// Lookup errors. Map to HTTP 404.
var (
	ErrNotFound = errors.New("not found")
)

// Upstream (LLM, channel-fetch) errors.
var (
	// ErrUpstreamTransient indicates a retryable upstream failure
	// (timeout, 5xx). Maps to HTTP 503 after the retry budget is spent.
	ErrUpstreamTransient = errors.New("upstream transient failure")

	// ErrUpstreamSchema indicates the upstream returned a response that
	// does not conform to the requested schema, even after a retry.
	// Maps to HTTP 502.
	ErrUpstreamSchema = errors.New("upstream schema violation")
)

// Storage errors. Map to HTTP 500; the caller aborts with no partial
// state.
var (
	ErrStorage = errors.New("storage failure")
)

// Link resolution errors. Recovered locally, never surfaced to callers.
var (
	ErrUnsupportedLink      = errors.New("unsupported link type")
	ErrLinkAttemptsExceeded = errors.New("link resolution attempts exceeded")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
