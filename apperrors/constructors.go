package apperrors

import (
	"fmt"
	"net/http"
)

// Codec errors

func NewSchemaError(field string, reason string) *AppError {
	return New(ErrCodeSchema, "Message does not match the chat schema", 0).
		WithOperation("encode").
		WithDetails("field", field).
		WithDetails("reason", reason).
		WithContext("subsystem", "wire")
}

func NewDecodeError(reason string, err error) *AppError {
	return New(ErrCodeDecode, "Malformed chat frame", 0).
		WithOperation("decode").
		WithDetails("reason", reason).
		WithContext("subsystem", "wire").
		WithInternal(err)
}

// Transport errors

func NewNotConnectedError(state string) *AppError {
	return New(ErrCodeNotConnected, "Not connected to the chat server", http.StatusServiceUnavailable).
		WithOperation("send").
		WithDetails("state", state).
		WithContext("subsystem", "transport")
}

func NewNetworkError(operation string, endpoint string, err error) *AppError {
	return New(ErrCodeNetwork, "Chat connection failed", http.StatusBadGateway).
		WithOperation(operation).
		WithDetails("endpoint", endpoint).
		WithContext("subsystem", "transport").
		WithInternal(err)
}

// REST collaborator errors

func NewAPIError(endpoint string, code int, msg string) *AppError {
	if msg == "" {
		msg = "Error"
	}
	return New(ErrCodeAPI, msg, code).
		WithOperation("api_call").
		WithDetails("endpoint", endpoint).
		WithDetails("code", code).
		WithContext("subsystem", "api")
}

func NewAPITransportError(endpoint string, err error) *AppError {
	return New(ErrCodeAPI, "Request to the chat backend failed", http.StatusBadGateway).
		WithOperation("api_call").
		WithDetails("endpoint", endpoint).
		WithContext("subsystem", "api").
		WithInternal(err)
}

// Circuit breaker errors
func NewCircuitBreakerError(service string, state string) *AppError {
	return New(ErrCodeServiceUnavail, "Service temporarily unavailable", http.StatusServiceUnavailable).
		WithOperation("circuit_breaker_check").
		WithDetails("service", service).
		WithDetails("breaker_state", state).
		WithContext("subsystem", "circuit_breaker")
}

// Session errors

func NewInvalidCredentials() *AppError {
	return New(ErrCodeInvalidCreds, "Invalid username or password", http.StatusUnauthorized)
}

func NewSessionNotFound(username string) *AppError {
	return New(ErrCodeSessionNotFound, "No saved session", http.StatusUnauthorized).
		WithOperation("session_resume").
		WithDetails("username", username).
		WithContext("subsystem", "sessions")
}

func NewSessionError(operation string, username string, err error) *AppError {
	return New(ErrCodeSessionNotFound, "Session operation failed", http.StatusInternalServerError).
		WithOperation(operation).
		WithDetails("username", username).
		WithContext("subsystem", "sessions").
		WithInternal(err)
}

// Attachment errors

func NewInvalidFileType(allowed []string) *AppError {
	return New(ErrCodeInvalidFileType, "Invalid file type", http.StatusBadRequest).
		WithDetails("allowed_types", allowed)
}

func NewFileTooLarge(maxSize int64) *AppError {
	return New(ErrCodeFileTooLarge, "File size exceeds limit", http.StatusBadRequest).
		WithDetails("max_size_bytes", maxSize)
}

func NewFileUploadError(filename string, reason string, err error) *AppError {
	return New(ErrCodeUploadFailed, "File upload failed", http.StatusBadRequest).
		WithOperation("file_upload").
		WithDetails("filename", filename).
		WithDetails("reason", reason).
		WithContext("subsystem", "upload").
		WithInternal(err)
}

// Validation

func NewValidationError(message string) *AppError {
	return New(ErrCodeValidationFailed, message, http.StatusBadRequest)
}

func NewValidationErrorf(format string, args ...any) *AppError {
	return NewValidationError(fmt.Sprintf(format, args...))
}

func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An internal error occurred"
	}
	return New(ErrCodeInternal, message, http.StatusInternalServerError)
}
