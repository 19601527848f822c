package rag

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline contracts. Callers classify failures with
// [errors.Is]; the HTTP layer maps them to status codes.
var (
	// ErrTenantNotFound is returned when an operation references a tenant
	// identifier that does not exist. Rejected before any side effect.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrEmptyContent is returned by ingestion when the document content is
	// empty after trimming.
	ErrEmptyContent = errors.New("document content is empty")

	// ErrEmptyQuery is returned by the query pipeline when the query text is
	// empty after trimming.
	ErrEmptyQuery = errors.New("query text is empty")

	// ErrProviderUnavailable is returned after a provider call has exhausted
	// its retry budget. Terminal for the current request only.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// StorageError wraps a relational or vector store failure. Storage errors are
// never retried automatically; any partial write within the same unit of work
// has already been rolled back when one is returned.
type StorageError struct {
	// Op is the failing operation name (e.g. "insert document").
	Op string

	// Err is the underlying store error.
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err as a StorageError for the named operation.
func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// IsTransient reports whether err represents a transient provider failure
// worth retrying (timeouts, rate limits). Terminal classification errors
// (validation, not-found) are never transient.
func IsTransient(err error) bool {
	var te interface{ Transient() bool }
	if errors.As(err, &te) {
		return te.Transient()
	}
	return false
}

// TransientError marks a provider failure as retryable. Provider adapters
// wrap timeouts and rate-limit responses in a TransientError so the retry
// layer can distinguish them from terminal failures.
type TransientError struct {
	// Err is the underlying provider error.
	Err error
}

// Error implements the error interface.
func (e *TransientError) Error() string { return e.Err.Error() }

// Unwrap exposes the underlying error for errors.Is/As.
func (e *TransientError) Unwrap() error { return e.Err }

// Transient marks this error as retryable.
func (e *TransientError) Transient() bool { return true }
