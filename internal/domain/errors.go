package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling at the
// transport boundary without the core importing any handler code.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}

	// QuotaExceededError indicates the owner's projected storage usage
	// would exceed their plan quota
	QuotaExceededError struct {
		Message string
	}

	// CircularReferenceError indicates a folder move that would make a
	// folder its own ancestor
	CircularReferenceError struct {
		Message string
	}

	// StorageBackendError indicates a failure in the object-storage collaborator
	StorageBackendError struct {
		Message string
	}

	// InconsistentStateError indicates drift between an incrementally
	// maintained aggregate and its recomputed source of truth
	InconsistentStateError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string          { return e.Message }
func (e *ValidationError) Error() string        { return e.Message }
func (e *UnauthorizedError) Error() string      { return e.Message }
func (e *ForbiddenError) Error() string         { return e.Message }
func (e *QuotaExceededError) Error() string     { return e.Message }
func (e *CircularReferenceError) Error() string { return e.Message }
func (e *StorageBackendError) Error() string    { return e.Message }
func (e *InconsistentStateError) Error() string { return e.Message }

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int          { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int        { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int      { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int         { return http.StatusForbidden }
func (e *QuotaExceededError) StatusCode() int     { return http.StatusInsufficientStorage }
func (e *CircularReferenceError) StatusCode() int { return http.StatusConflict }
func (e *StorageBackendError) StatusCode() int    { return http.StatusBadGateway }
func (e *InconsistentStateError) StatusCode() int { return http.StatusInternalServerError }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrQuotaExceeded      = errors.New("quota exceeded")
	ErrCircularReference  = errors.New("circular folder reference")
	ErrInconsistentState  = errors.New("inconsistent aggregate state")
	ErrStorageBackend     = errors.New("storage backend failure")
	ErrScannerUnavailable = errors.New("risk assessment unavailable")
)

// Is allows errors.Is() matching of typed errors against their sentinels.
func (e *NotFoundError) Is(target error) bool          { return target == ErrNotFound }
func (e *ForbiddenError) Is(target error) bool         { return target == ErrForbidden }
func (e *ValidationError) Is(target error) bool        { return target == ErrValidation }
func (e *QuotaExceededError) Is(target error) bool     { return target == ErrQuotaExceeded }
func (e *CircularReferenceError) Is(target error) bool { return target == ErrCircularReference }
func (e *StorageBackendError) Is(target error) bool    { return target == ErrStorageBackend }
func (e *InconsistentStateError) Is(target error) bool { return target == ErrInconsistentState }

// ConflictError represents a sibling name conflict with details about the
// existing resource so callers can surface or resolve it
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (folder, file)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
