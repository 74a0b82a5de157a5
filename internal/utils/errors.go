package utils

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrorCodeValidationError    ErrorCode = "VALIDATION_ERROR"
	ErrorCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrorCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrorCodeGuestNotAllowed    ErrorCode = "GUEST_NOT_ALLOWED"
	ErrorCodeRemoteUnavailable  ErrorCode = "REMOTE_UNAVAILABLE"
	ErrorCodeDatabaseError      ErrorCode = "DATABASE_ERROR"
	ErrorCodeRateLimitExceeded  ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrorCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrorCodeEventNotFound      ErrorCode = "EVENT_NOT_FOUND"
	ErrorCodeMissingDeviceID    ErrorCode = "MISSING_DEVICE_ID"
	ErrorCodeEmailTaken         ErrorCode = "EMAIL_TAKEN"
	ErrorCodeSessionMismatch    ErrorCode = "SESSION_MISMATCH"
)

type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
	cause      error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

func NewError(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    make(map[string]interface{}),
	}
}

func NewErrorWithDetails(code ErrorCode, message string, statusCode int, details map[string]interface{}) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

// AsAppError unwraps err into an *AppError, falling back to an internal error.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	internal := NewInternalError()
	internal.cause = err
	return internal
}

// Common error constructors
func NewValidationError(message string, details map[string]interface{}) *AppError {
	return NewErrorWithDetails(ErrorCodeValidationError, message, http.StatusBadRequest, details)
}

func NewInvalidCredentialsError(message string) *AppError {
	if message == "" {
		message = "Invalid email or password"
	}
	return NewError(ErrorCodeInvalidCredentials, message, http.StatusUnauthorized)
}

func NewGuestNotAllowedError() *AppError {
	return NewError(
		ErrorCodeGuestNotAllowed,
		"Guest sessions cannot keep favorites. Please sign in.",
		http.StatusForbidden,
	)
}

// NewSessionMismatchError is returned when a valid token belongs to someone
// other than the user signed in on the device.
func NewSessionMismatchError() *AppError {
	return NewError(
		ErrorCodeSessionMismatch,
		"Token does not match the session on this device",
		http.StatusForbidden,
	)
}

func NewRemoteUnavailableError(err error) *AppError {
	appErr := NewError(
		ErrorCodeRemoteUnavailable,
		"Remote service is unavailable, please try again",
		http.StatusBadGateway,
	)
	appErr.cause = err
	return appErr
}

func NewEventNotFoundError(eventID string) *AppError {
	return NewError(
		ErrorCodeEventNotFound,
		fmt.Sprintf("Event with ID %s not found", eventID),
		http.StatusNotFound,
	)
}

func NewDatabaseError(err error) *AppError {
	appErr := NewError(
		ErrorCodeDatabaseError,
		"Database operation failed",
		http.StatusInternalServerError,
	)
	appErr.cause = err
	return appErr
}

func NewEmailTakenError(email string) *AppError {
	return NewErrorWithDetails(
		ErrorCodeEmailTaken,
		"An account with this email already exists",
		http.StatusConflict,
		map[string]interface{}{
			"email": email,
		},
	)
}

func NewMissingDeviceIDError() *AppError {
	return NewError(
		ErrorCodeMissingDeviceID,
		"X-Device-ID header is required",
		http.StatusBadRequest,
	)
}

func NewUnauthorizedError() *AppError {
	return NewError(
		ErrorCodeUnauthorized,
		"Invalid or missing authentication",
		http.StatusUnauthorized,
	)
}

func NewRateLimitError() *AppError {
	return NewError(
		ErrorCodeRateLimitExceeded,
		"Too many requests",
		http.StatusTooManyRequests,
	)
}

func NewInternalError() *AppError {
	return NewError(
		ErrorCodeInternalError,
		"An unexpected error occurred",
		http.StatusInternalServerError,
	)
}
