package apperror

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
)

type AppError struct {
	Code       string         // Error code (e.g. VALIDATION_ERROR)
	Message    string         // User-facing message
	HTTPStatus int            // HTTP status code
	Details    map[string]any // Extra client-visible data, e.g. the available balance
	Err        error          // Wrapped cause, never shown to clients
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so copies produced by WithMessage, WithDetails and Wrap
// still compare equal to the sentinel they were derived from.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func (e *AppError) clone() *AppError {
	out := *e
	if e.Details != nil {
		out.Details = maps.Clone(e.Details)
	}
	return &out
}

func (e *AppError) WithMessage(message string) *AppError {
	out := e.clone()
	out.Message = message
	return out
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	out := e.clone()
	if out.Details == nil {
		out.Details = map[string]any{}
	}
	maps.Copy(out.Details, details)
	return out
}

func (e *AppError) Wrap(err error) *AppError {
	out := e.clone()
	out.Err = err
	return out
}

// From returns the AppError carried by err, or a STORE_ERROR wrapping it.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrStore.Wrap(err)
}

// Status returns the HTTP status for err, 500 for anything unknown.
func Status(err error) int {
	if appErr := From(err); appErr != nil {
		return appErr.HTTPStatus
	}
	return http.StatusOK
}
