package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeCredential ErrorType = "CREDENTIAL"
	ErrTypeAccess     ErrorType = "ACCESS"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeNetwork    ErrorType = "NETWORK"
	ErrTypeParsing    ErrorType = "PARSING"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeInternal   ErrorType = "INTERNAL"
)

// Sentinels for errors.Is matching on the error type alone.
var (
	ErrCredential = &AppError{Type: ErrTypeCredential, Message: "credential rejected"}
	ErrAccess     = &AppError{Type: ErrTypeAccess, Message: "access denied"}
	ErrNotFound   = &AppError{Type: ErrTypeNotFound, Message: "resource not found"}
	ErrNetwork    = &AppError{Type: ErrTypeNetwork, Message: "upstream unreachable"}
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	// Remedy tells the operator what to change to make the call succeed.
	Remedy string
	// Status is the upstream HTTP status, 0 when none was received.
	Status  int
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type, e.Message)
	if e.Remedy != "" {
		msg += " (" + e.Remedy + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError of the same type, so errors.Is(err, ErrAccess)
// holds for every access failure regardless of message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRemedy sets the operator remedy.
func (e *AppError) WithRemedy(remedy string) *AppError {
	e.Remedy = remedy
	return e
}

// WithStatus records the upstream HTTP status.
func (e *AppError) WithStatus(status int) *AppError {
	e.Status = status
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// TypeOf returns the type of the outermost AppError in the chain, or
// ErrTypeInternal when there is none. A nil error yields "".
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrTypeInternal
}

// RemedyOf returns the remedy of the outermost AppError in the chain.
func RemedyOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Remedy
	}
	return ""
}

// HTTPStatus maps an error type to the status the API answers with.
func HTTPStatus(t ErrorType) int {
	switch t {
	case ErrTypeCredential:
		return http.StatusUnauthorized
	case ErrTypeAccess:
		return http.StatusForbidden
	case ErrTypeNotFound:
		return http.StatusNotFound
	case ErrTypeNetwork:
		return http.StatusBadGateway
	case ErrTypeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Helper functions for common error types

// NewCredentialError creates an error for a rejected API key or token
func NewCredentialError(message string, cause error) *AppError {
	return NewAppError(ErrTypeCredential, message, cause)
}

// NewAccessError creates an error for a document the credential cannot read
func NewAccessError(message string, cause error) *AppError {
	return NewAppError(ErrTypeAccess, message, cause)
}

// NewNetworkError creates a network-related error
func NewNetworkError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNetwork, message, cause)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
