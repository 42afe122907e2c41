package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput signals malformed or empty input, rejected without retry.
	ErrInvalidInput = errors.New("invalid input")
	// ErrVectorDimMismatch signals an embedding that does not match the canonical dimension.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrQuotaExceeded signals an exhausted upstream quota (HTTP 429).
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrServiceUnavailable signals a transient upstream failure.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrStoreUnavailable signals a document store connectivity failure.
	ErrStoreUnavailable = errors.New("store unavailable")
)
