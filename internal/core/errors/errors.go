// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Unexported errors (err*): Use for internal package errors
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Circuit breaker errors.
var (
	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

// Configuration errors.
var (
	// ErrMissingConfig indicates a required configuration value is not set.
	ErrMissingConfig = errors.New("missing required configuration")

	// ErrInvalidRegistry indicates the source or category registry could not be used.
	ErrInvalidRegistry = errors.New("invalid registry")
)

// Client and connection errors.
var (
	// ErrClientDisabled indicates a client or feature is disabled.
	ErrClientDisabled = errors.New("client disabled")

	// ErrHTTPStatusNotOK indicates an upstream returned a non-200 status.
	ErrHTTPStatusNotOK = errors.New("unexpected http status")
)

// Response and parsing errors.
var (
	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")

	// ErrNonXMLFeed indicates a feed body did not look like XML after cleanup.
	ErrNonXMLFeed = errors.New("feed body is not xml")

	// ErrInvalidPayload indicates a response body did not match the expected shape.
	ErrInvalidPayload = errors.New("invalid payload")
)

// Image generation errors.
var (
	// ErrGeneratorDisabled indicates image generation has no credentials or was switched off.
	ErrGeneratorDisabled = errors.New("image generator disabled")

	// ErrGeneratorAuth indicates the image generation API rejected the credentials.
	ErrGeneratorAuth = errors.New("image generator rejected credentials")
)

// Pipeline errors.
var (
	// ErrRunInProgress indicates another ingestion run holds the run lock.
	ErrRunInProgress = errors.New("ingestion run already in progress")
)

// Newsletter errors.
var (
	// ErrDuplicateSubscriber indicates the email is already subscribed.
	ErrDuplicateSubscriber = errors.New("email already subscribed")

	// ErrInvalidEmail indicates a malformed email address.
	ErrInvalidEmail = errors.New("invalid email address")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
