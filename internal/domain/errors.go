package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized indicates the session token was rejected
	ErrUnauthorized = errors.New("authentication token is invalid")

	// ErrNoSession indicates no user is logged in
	ErrNoSession = errors.New("not logged in")

	// ErrCacheMiss indicates no envelope is stored for a key
	ErrCacheMiss = errors.New("cache miss")

	// ErrCheckoutUnavailable indicates the checkout script could not be loaded
	ErrCheckoutUnavailable = errors.New("failed to load payment processor")

	// ErrPaymentCancelled indicates the user dismissed the checkout widget
	ErrPaymentCancelled = errors.New("payment was cancelled")

	// ErrAlreadyProcessing indicates a payment is already in flight
	ErrAlreadyProcessing = errors.New("payment already in progress")

	// ErrLessonNotFound indicates a lesson id is not part of the course
	ErrLessonNotFound = errors.New("lesson not found in course")

	// ErrLessonLocked indicates a lesson is not yet unlocked for the user
	ErrLessonLocked = errors.New("lesson is locked")

	// ErrAdminLogin indicates an admin account tried to log in to the client
	ErrAdminLogin = errors.New("admins cannot log in through this client")
)

// NetworkError means the request never reached the server or no response came back.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e.Op == "" {
		return "Network error"
	}
	return fmt.Sprintf("%s: Network error", e.Op)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError means the server responded with a non-2xx status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Is lets callers match well-known statuses with errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// StorageError means a persistence read or write failed. It never leaves the
// cache store; it exists so the failure can be logged with its context.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ValidationError means a client-side precondition failed before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsTransient reports whether err is a network or server failure that a user
// could retry, as opposed to a validation or authorization problem.
func IsTransient(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	return false
}
