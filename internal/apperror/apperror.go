// Package apperror carries HTTP status, wire error code and a safe
// user-facing message alongside an underlying error.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Wire error codes
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeLLMTimeout         = "LLM_TIMEOUT"
	CodeDatabase           = "DATABASE_ERROR"
	CodeReferenceNotFound  = "REFERENCE_NOT_FOUND"
)

// User-facing messages
const (
	MessageInvalidInput = "Nieprawidłowe dane wejściowe"
	MessageInternal     = "Wystąpił nieoczekiwany błąd serwera"
	MessageDatabase     = "Błąd bazy danych"
	MessageNotFound     = "Nie znaleziono odniesienia"
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches the underlying error.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return errors.As(e.Err, target)
}

// WithDetails returns a copy of e with the given details attached.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

func New(err error, status int, code, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Code:    code,
		Message: message,
	}
}

// Validation reports an invalid request field.
func Validation(field, reason string) *AppError {
	return &AppError{
		Err:     fmt.Errorf("invalid %s: %s", field, reason),
		Status:  http.StatusBadRequest,
		Code:    CodeValidation,
		Message: MessageInvalidInput,
		Details: map[string]any{"field": field, "reason": reason},
	}
}

func Internal(err error) *AppError {
	return New(err, http.StatusInternalServerError, CodeInternal, MessageInternal)
}

func Database(err error) *AppError {
	return New(err, http.StatusInternalServerError, CodeDatabase, MessageDatabase)
}

func NotFound(err error, code string) *AppError {
	return New(err, http.StatusNotFound, code, MessageNotFound)
}

// From returns err as an *AppError, wrapping unknown errors as internal.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
