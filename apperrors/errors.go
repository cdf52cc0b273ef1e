package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents application-specific error codes
type ErrorCode string

const (
	// Wire codec
	ErrCodeSchema ErrorCode = "SCHEMA_INVALID"
	ErrCodeDecode ErrorCode = "DECODE_FAILED"

	// Transport
	ErrCodeNotConnected ErrorCode = "NOT_CONNECTED"
	ErrCodeNetwork      ErrorCode = "NETWORK_ERROR"

	// REST collaborator
	ErrCodeAPI ErrorCode = "API_ERROR"

	// Authentication & sessions
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidCreds    ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"

	// Attachments
	ErrCodeInvalidFileType ErrorCode = "INVALID_FILE_TYPE"
	ErrCodeFileTooLarge    ErrorCode = "FILE_TOO_LARGE"
	ErrCodeInvalidFilename ErrorCode = "INVALID_FILENAME"
	ErrCodeUploadFailed    ErrorCode = "UPLOAD_FAILED"

	// Validation
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Internal Errors
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
	ErrCodeServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
)

// AppError represents a structured application error
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	StatusCode int            `json:"-"`
	Operation  string         `json:"-"`
	Internal   error          `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Context    map[string]any `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Is reports whether target is an AppError carrying the same code, so that
// errors.Is(err, apperrors.New(ErrCodeNotConnected, "", 0)) works across wrapping.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails adds contextual details to the error
func (e *AppError) WithDetails(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithContext adds log-only context that is never shown to the user
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithOperation records the operation that failed
func (e *AppError) WithOperation(op string) *AppError {
	e.Operation = op
	return e
}

// WithInternal wraps an internal error
func (e *AppError) WithInternal(err error) *AppError {
	e.Internal = err
	return e
}

// LogFields flattens the error into fields for the structured logger.
func (e *AppError) LogFields() map[string]any {
	fields := map[string]any{
		"error_code": string(e.Code),
	}
	if e.StatusCode != 0 {
		fields["status"] = e.StatusCode
	}
	if e.Operation != "" {
		fields["operation"] = e.Operation
	}
	if e.Internal != nil {
		fields["internal_error"] = e.Internal.Error()
	}
	for k, v := range e.Details {
		fields[k] = v
	}
	for k, v := range e.Context {
		fields["ctx_"+k] = v
	}
	return fields
}

// New creates a new AppError
func New(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// FromError converts a standard error to AppError if possible
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return New(ErrCodeInternal, "An internal error occurred", http.StatusInternalServerError).WithInternal(err)
}
