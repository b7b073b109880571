// Package apierr defines the error taxonomy shared by the console core.
// Every error surfaced by the stores, the request client, and the session
// controller is one of these types, so callers can branch on the failure
// class with errors.As without string matching.
package apierr

import (
	"fmt"
	"time"
)

// ValidationError reports an unusable argument rejected before any network
// call was made.
type ValidationError struct {
	// Field names the offending argument.
	Field string

	// Reason describes why the argument was rejected.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// BusyError reports that a same-kind operation is already in flight on the
// store the call was issued against.
type BusyError struct {
	// Kind is the operation kind already in flight (e.g. "creating").
	Kind string
}

// Error implements the error interface.
func (e *BusyError) Error() string {
	return fmt.Sprintf("operation already in flight: %s", e.Kind)
}

// TimeoutError reports that the request client's deadline elapsed before the
// remote responded. It is always distinct from NetworkError.
type TimeoutError struct {
	// URL is the request target.
	URL string

	// Timeout is the deadline that elapsed.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timeout after %s: %s", e.Timeout, e.URL)
}

// NetworkError reports a transport failure other than timeout (DNS failure,
// connection reset, closed connection).
type NetworkError struct {
	// URL is the request target.
	URL string

	// Err is the underlying transport error.
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError reports a remote response outside the 2xx range. Message is
// taken from the response envelope when present.
type HTTPError struct {
	// Status is the HTTP status code.
	Status int

	// Message is the server-supplied message, or a caller fallback.
	Message string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// ParseError reports a response that declared a non-JSON content type where
// JSON was expected, or a body in an unrecognized wire shape.
type ParseError struct {
	// Detail describes what failed to parse.
	Detail string

	// Err is the underlying decode error, if any.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Detail, e.Err)
	}
	return "parse error: " + e.Detail
}

// Unwrap returns the underlying decode error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ProviderError reports a failed identity-provider operation (sign-in, token
// fetch, account creation).
type ProviderError struct {
	// Op is the provider operation that failed.
	Op string

	// Err is the underlying provider error.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity provider: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying provider error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}
