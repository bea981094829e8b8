package domain

import (
	"errors"
	"fmt"
)

// Error codes shared by every operation of the client.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidPhone      = "INVALID_PHONE_FORMAT"
	CodeDuplicateActive   = "DUPLICATE_ACTIVE_REQUEST"
	CodeInvalidCredential = "INVALID_CREDENTIALS"
	CodeUnknownUser       = "UNKNOWN_USER"
	CodeLoginFailed       = "LOGIN_FAILED"
	CodeNetwork           = "NETWORK_ERROR"
	CodeServer            = "SERVER_ERROR"
	CodeNotLoggedIn       = "NOT_LOGGED_IN"
	CodeIncompleteProfile = "INCOMPLETE_PROFILE"
)

// NetworkErrorMessage is shown whenever no response was received.
const NetworkErrorMessage = "Network error. Please check your connection and try again."

// Error is the single error type surfaced to callers. Code identifies the
// failure class; Message is what gets shown to the user.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Field is the offending input field for validation failures.
	Field string `json:"field,omitempty"`
	// Status is the HTTP status for server errors, zero otherwise.
	Status int   `json:"status,omitempty"`
	Err    error `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches by code. ErrValidation also matches the more specific
// validation codes (phone format, duplicate active request).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == e.Code {
		return true
	}
	return t.Code == CodeValidation && isValidationCode(e.Code)
}

func isValidationCode(code string) bool {
	switch code {
	case CodeValidation, CodeInvalidPhone, CodeDuplicateActive:
		return true
	}
	return false
}

// NewError creates a new error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Sentinels for errors.Is checks.
var (
	ErrValidation             = NewError(CodeValidation, "Invalid input")
	ErrInvalidPhoneFormat     = NewError(CodeInvalidPhone, "Please enter a valid Bangladeshi phone number (01XXXXXXXXX).")
	ErrDuplicateActiveRequest = NewError(CodeDuplicateActive, "You already have an active request for this phone number.")
	ErrInvalidCredentials     = NewError(CodeInvalidCredential, "Wrong password")
	ErrUnknownUser            = NewError(CodeUnknownUser, "User not found")
	ErrLoginFailed            = NewError(CodeLoginFailed, "Login failed")
	ErrNetwork                = NewError(CodeNetwork, NetworkErrorMessage)
	ErrServer                 = NewError(CodeServer, "Request failed")
	ErrNotLoggedIn            = NewError(CodeNotLoggedIn, "No donor ID found. Please login first.")
	ErrIncompleteProfile      = NewError(CodeIncompleteProfile, "Please complete your profile (blood group and gender).")
)

// NewValidationError reports a bad input field.
func NewValidationError(field, message string) *Error {
	return &Error{Code: CodeValidation, Field: field, Message: message}
}

// NewNetworkError wraps a transport failure.
func NewNetworkError(cause error) *Error {
	return &Error{Code: CodeNetwork, Message: NetworkErrorMessage, Err: cause}
}

// NewServerError reports a non-2xx response. An empty message falls back
// to the caller supplied default.
func NewServerError(status int, message, fallback string) *Error {
	if message == "" {
		message = fallback
	}
	return &Error{Code: CodeServer, Status: status, Message: message}
}

// NewLoginFailed reports an unrecognised login response.
func NewLoginFailed(message string) *Error {
	if message == "" {
		message = ErrLoginFailed.Message
	}
	return &Error{Code: CodeLoginFailed, Message: message}
}

// CodeOf returns the code of err, or "" if it is not a *Error.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsValidation reports whether err was raised before any network call.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
