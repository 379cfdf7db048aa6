package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeConnection represents connection-related errors
	ErrTypeConnection ErrorType = "connection"
	// ErrTypeValidation represents validation errors
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeConfig represents configuration errors
	ErrTypeConfig ErrorType = "config"
	// ErrTypeAuth represents authentication errors (token request failed
	// or the remote rejected our bearer token)
	ErrTypeAuth ErrorType = "authentication"
	// ErrTypeNotFound represents resource not found errors
	ErrTypeNotFound ErrorType = "not_found"
	// ErrTypeInternal represents internal system errors
	ErrTypeInternal ErrorType = "internal"
	// ErrTypeTimeout represents polling attempts exhausted with the job
	// still non-terminal
	ErrTypeTimeout ErrorType = "timeout"
	// ErrTypeRetryExhausted represents a transport operation that failed
	// on every configured retry attempt
	ErrTypeRetryExhausted ErrorType = "retry_exhausted"
	// ErrTypeJobFailed represents a remote job that reached a terminal
	// failure state (FAILED/ERROR)
	ErrTypeJobFailed ErrorType = "job_failed"
	// ErrTypeUnexpectedStatus represents a remote status outside the
	// known vocabulary
	ErrTypeUnexpectedStatus ErrorType = "unexpected_status"
	// ErrTypeResultUnavailable represents both result-fetch tiers failing
	ErrTypeResultUnavailable ErrorType = "result_unavailable"
	// ErrTypeCancelled represents caller-initiated cancellation
	ErrTypeCancelled ErrorType = "cancelled"
	// ErrTypePayloadTooLarge represents an upload over the size cap
	ErrTypePayloadTooLarge ErrorType = "payload_too_large"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// ConnectionError creates a new connection error
func ConnectionError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeConnection,
		Message: msg,
		Cause:   cause,
	}
}

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: msg,
	}
}

// ConfigError creates a new configuration error
func ConfigError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: msg,
	}
}

// AuthError creates a new authentication error
func AuthError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeAuth,
		Message: msg,
		Cause:   cause,
	}
}

// NotFoundError creates a new not found error
func NotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// RetryExhaustedError creates an error for an operation that failed on
// every attempt, wrapping the last underlying failure
func RetryExhaustedError(operation string, attempts int, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeRetryExhausted,
		Message: fmt.Sprintf("%s failed after %d attempts", operation, attempts),
		Cause:   cause,
	}
}

// JobFailedError creates an error for a job that reached a terminal
// failure state
func JobFailedError(jobID, status string) *AppError {
	return &AppError{
		Type:    ErrTypeJobFailed,
		Message: fmt.Sprintf("job %s failed with status %s", jobID, status),
		Context: map[string]interface{}{"job_id": jobID, "status": status},
	}
}

// UnexpectedStatusError creates an error for a status value outside the
// known vocabulary
func UnexpectedStatusError(jobID, status string) *AppError {
	return &AppError{
		Type:    ErrTypeUnexpectedStatus,
		Message: fmt.Sprintf("job %s reported unexpected status %q", jobID, status),
		Context: map[string]interface{}{"job_id": jobID, "status": status},
	}
}

// TimeoutError creates an error for polling that exhausted its attempts
func TimeoutError(jobID string, attempts int) *AppError {
	return &AppError{
		Type:    ErrTypeTimeout,
		Message: fmt.Sprintf("job %s still pending after %d attempts", jobID, attempts),
		Context: map[string]interface{}{"job_id": jobID, "attempts": attempts},
	}
}

// ResultUnavailableError creates an error for a job whose result could
// not be fetched through either tier
func ResultUnavailableError(jobID string) *AppError {
	return &AppError{
		Type:    ErrTypeResultUnavailable,
		Message: fmt.Sprintf("unable to fetch results for job %s", jobID),
		Context: map[string]interface{}{"job_id": jobID},
	}
}

// PayloadTooLargeError creates an error for an upload over the size cap
func PayloadTooLargeError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypePayloadTooLarge,
		Message: msg,
	}
}

// CancelledError creates an error for a wait interrupted by the caller
func CancelledError(operation string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeCancelled,
		Message: fmt.Sprintf("%s cancelled", operation),
		Cause:   cause,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}

	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return ErrTypeInternal
	}

	return appErr.Type
}

// HTTPStatus maps an error to the status code the gateway returns for it.
// Job-semantic failures map to upstream-style statuses so callers can
// distinguish them from gateway faults.
func HTTPStatus(err error) int {
	switch GetType(err) {
	case ErrTypeValidation:
		return http.StatusBadRequest
	case ErrTypeNotFound:
		return http.StatusNotFound
	case ErrTypePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrTypeAuth, ErrTypeJobFailed, ErrTypeResultUnavailable,
		ErrTypeRetryExhausted, ErrTypeConnection, ErrTypeUnexpectedStatus:
		return http.StatusBadGateway
	case ErrTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
