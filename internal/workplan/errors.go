package workplan

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed generation.
type ErrorKind string

const (
	KindEmptyActivity    ErrorKind = "empty_activity"
	KindTimeout          ErrorKind = "timeout"
	KindUnavailable      ErrorKind = "unavailable"
	KindMalformedOutput  ErrorKind = "malformed_output"
	KindValidationFailed ErrorKind = "validation_failed"
	KindInternal         ErrorKind = "internal"
)

// Sentinel errors for errors.Is checks against a GenerationError.
var (
	ErrEmptyActivity    = &GenerationError{Kind: KindEmptyActivity}
	ErrTimeout          = &GenerationError{Kind: KindTimeout}
	ErrUnavailable      = &GenerationError{Kind: KindUnavailable}
	ErrMalformedOutput  = &GenerationError{Kind: KindMalformedOutput}
	ErrValidationFailed = &GenerationError{Kind: KindValidationFailed}
)

// Errors a Gateway returns so the orchestrator can classify failures.
var (
	ErrGatewayTimeout     = errors.New("gateway timeout")
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	ErrGatewayMalformed   = errors.New("gateway returned malformed response")
)

// GenerationError is the single error type returned by GenerateOne.
// Every kind is terminal for the call that produced it.
type GenerationError struct {
	Kind   ErrorKind
	Reason FailureReason // set for KindValidationFailed
	Err    error
}

func (e *GenerationError) Error() string {
	msg := string(e.Kind)
	if e.Reason != "" {
		msg += " (" + string(e.Reason) + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is matches any GenerationError of the same kind, so the sentinels above
// work with errors.Is regardless of Reason or the wrapped cause.
func (e *GenerationError) Is(target error) bool {
	t, ok := target.(*GenerationError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

// Retryable reports whether a fresh gateway call could plausibly succeed.
func (e *GenerationError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindUnavailable, KindMalformedOutput, KindValidationFailed:
		return true
	default:
		return false
	}
}

// Code returns the wire error code for this error.
func (e *GenerationError) Code() string {
	switch e.Kind {
	case KindEmptyActivity:
		return "VALIDATION_ERROR"
	case KindTimeout:
		return "LLM_TIMEOUT"
	case KindUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}

// Message returns the user-facing (Polish) description of the failure.
func (e *GenerationError) Message() string {
	switch e.Kind {
	case KindEmptyActivity:
		return "Pole aktywności nie może być puste"
	case KindTimeout:
		return "Żądanie przekroczyło limit czasu. Spróbuj ponownie."
	case KindUnavailable:
		return "Nie można połączyć z usługą AI. Wypełnij dane ręcznie."
	case KindMalformedOutput:
		return "Usługa AI zwróciła nieprawidłową odpowiedź. Spróbuj ponownie."
	case KindValidationFailed:
		return "Nie udało się wygenerować poprawnych sugestii dla tego wiersza. Spróbuj ponownie."
	default:
		return "Wystąpił nieoczekiwany błąd serwera"
	}
}

func newGenerationError(kind ErrorKind, err error) *GenerationError {
	return &GenerationError{Kind: kind, Err: err}
}

func validationError(reason FailureReason) *GenerationError {
	return &GenerationError{
		Kind:   KindValidationFailed,
		Reason: reason,
		Err:    fmt.Errorf("model output rejected: %s", reason),
	}
}

// AsGenerationError extracts a GenerationError from err, wrapping anything
// else as KindInternal.
func AsGenerationError(err error) *GenerationError {
	if err == nil {
		return nil
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr
	}
	return newGenerationError(KindInternal, err)
}

// HumanReadable renders err the way bulk reports present failures.
func HumanReadable(err error) string {
	if err == nil {
		return ""
	}
	return AsGenerationError(err).Message()
}
