// Package errmap translates domain errors into HTTP responses.
package errmap

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aelexs/fuzzyclock/internal/domain"
)

// HTTPError represents an HTTP error response.
type HTTPError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e HTTPError) Error() string {
	return e.Message
}

// httpMapping defines a domain error to HTTP status/code mapping.
type httpMapping struct {
	err        error
	statusCode int
	code       string
}

// httpMappings maps domain errors to HTTP status codes and error codes.
// Order matters: first match wins (via errors.Is).
var httpMappings = []httpMapping{
	// Resource errors
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInstanceRemoved, http.StatusGone, "INSTANCE_REMOVED"},
	{domain.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},

	// Validation errors: the specific codes first, ErrInvalidInput last
	{domain.ErrInvalidPolicy, http.StatusBadRequest, "INVALID_POLICY"},
	{domain.ErrInvalidHourFormat, http.StatusBadRequest, "INVALID_HOUR_FORMAT"},
	{domain.ErrInvalidOrientation, http.StatusBadRequest, "INVALID_ORIENTATION"},
	{domain.ErrInvalidSample, http.StatusBadRequest, "INVALID_SAMPLE"},
	{domain.ErrEmptyID, http.StatusBadRequest, "INVALID_ARGUMENT"},
	{domain.ErrInvalidID, http.StatusBadRequest, "INVALID_ARGUMENT"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "INVALID_ARGUMENT"},

	// Availability
	{domain.ErrUnavailable, http.StatusServiceUnavailable, "UNAVAILABLE"},
}

// ToHTTPError converts a domain error to an HTTP error.
func ToHTTPError(err error) HTTPError {
	if err == nil {
		return HTTPError{StatusCode: http.StatusOK}
	}
	for _, m := range httpMappings {
		if errors.Is(err, m.err) {
			return HTTPError{StatusCode: m.statusCode, Code: m.code, Message: err.Error()}
		}
	}
	// Never expose internal error details to clients
	return HTTPError{StatusCode: http.StatusInternalServerError, Code: "INTERNAL", Message: "internal error"}
}

// ToHTTPStatusCode extracts just the HTTP status code for a domain error.
func ToHTTPStatusCode(err error) int {
	return ToHTTPError(err).StatusCode
}

// retryAfterSeconds is advertised on responses for transient failures.
const retryAfterSeconds = "1"

// WriteError writes err as a JSON error body with its mapped status.
func WriteError(w http.ResponseWriter, err error) {
	he := ToHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	if domain.IsRetryable(err) {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	w.WriteHeader(he.StatusCode)
	_ = json.NewEncoder(w).Encode(he)
}

// LogLevel picks the level a failed request is logged at. Only failures the
// caller cannot fix are logged above info.
func LogLevel(err error) slog.Level {
	switch {
	case domain.IsNotFound(err):
		return slog.LevelDebug
	case domain.IsClientError(err):
		return slog.LevelInfo
	case domain.IsRetryable(err):
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// LogError records a failed request at LogLevel(err).
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("error", err.Error()))
	logger.LogAttrs(ctx, LogLevel(err), msg, attrs...)
}
