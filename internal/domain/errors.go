package domain

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	CodeValidation ErrorCode = "VALIDATION"
	CodeAuth       ErrorCode = "AUTH"
	CodeForbidden  ErrorCode = "FORBIDDEN"
	CodeNotFound   ErrorCode = "NOT_FOUND"
	CodeInternal   ErrorCode = "INTERNAL"
)

// Repository sentinels. Services translate them into AppErrors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

// AppError is the single error shape surfaced to API clients.
type AppError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error code onto a response status.
func (e *AppError) HTTPStatus() int {
	return StatusForCode(e.Code)
}

func StatusForCode(code ErrorCode) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeAuth:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func newAppError(code ErrorCode, message string, details map[string]any) *AppError {
	return &AppError{Code: code, Message: message, Details: details}
}

func NewValidation(message string, details map[string]any) *AppError {
	return newAppError(CodeValidation, message, details)
}

func NewAuth(message string, details map[string]any) *AppError {
	return newAppError(CodeAuth, message, details)
}

func NewForbidden(message string, details map[string]any) *AppError {
	return newAppError(CodeForbidden, message, details)
}

func NewNotFound(message string, details map[string]any) *AppError {
	return newAppError(CodeNotFound, message, details)
}

// NewInternal keeps the cause for logs; only Message reaches clients.
func NewInternal(message string, err error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Err: err}
}

// AsAppError unwraps err into an AppError, wrapping unknown errors as INTERNAL.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal("An unexpected error occurred", err)
}

func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return AsAppError(err).Code
}

func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
