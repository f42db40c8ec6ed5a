package ipgate

import "errors"

var (
	// ErrNotFound is returned when content or a path segment does not exist
	ErrNotFound = errors.New("not found")
	// ErrBadRequest is returned for malformed URLs, identifiers, ranges or negotiation parameters
	ErrBadRequest = errors.New("bad request")
	// ErrMethodNotAllowed is returned for anything other than GET and HEAD
	ErrMethodNotAllowed = errors.New("method not allowed")
	// ErrNotImplemented is returned for entry kinds the gateway cannot render
	ErrNotImplemented = errors.New("not implemented")
	// ErrPreconditionFailed is returned when an only-if-cached request misses the cache
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrRangeNotSatisfiable is returned when a resolved range falls outside the content
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
	// ErrReadOnly is returned by block stores that cannot accept writes
	ErrReadOnly = errors.New("read only")
)
