package domain

import "errors"

// Sentinel errors for domain error conditions.
// Use errors.Is() for matching - never compare error strings.
var (
	// ID validation errors
	ErrEmptyID   = errors.New("ID cannot be empty")
	ErrInvalidID = errors.New("invalid ID format")

	// Resource errors
	ErrNotFound        = errors.New("resource not found")
	ErrAlreadyExists   = errors.New("resource already exists")
	ErrInstanceRemoved = errors.New("display instance has been removed")

	// Validation errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidSample      = errors.New("time sample out of range")
	ErrInvalidPolicy      = errors.New("unknown fuzzy policy")
	ErrInvalidHourFormat  = errors.New("unknown hour format")
	ErrInvalidOrientation = errors.New("unknown orientation")

	// Operational errors
	ErrUnavailable = errors.New("service temporarily unavailable")

	// Configuration errors
	ErrConfigRequired = errors.New("required configuration key missing")
)

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// clientErrors enumerates all domain errors that represent caller-side issues.
var clientErrors = []error{
	ErrInvalidInput,
	ErrInvalidSample,
	ErrInvalidPolicy,
	ErrInvalidHourFormat,
	ErrInvalidOrientation,
	ErrNotFound,
	ErrAlreadyExists,
	ErrInstanceRemoved,
	ErrEmptyID,
	ErrInvalidID,
}

// IsClientError returns true if the error represents a caller-side issue
// that will not succeed on retry without changing the request.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound returns true if the error represents a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
