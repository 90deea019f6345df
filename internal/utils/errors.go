package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds surfaced by the billing engine. Services wrap these with
// fmt.Errorf("%w: ...") so callers can branch with errors.Is.
var (
	ErrValidation             = errors.New("validation_error")
	ErrPreconditionFailed     = errors.New("precondition_failed")
	ErrInvalidStateTransition = errors.New("invalid_state_transition")
	ErrDuplicateSuppressed    = errors.New("duplicate_suppressed")
	ErrDependencyUnavailable  = errors.New("dependency_unavailable")
	ErrNotFound               = errors.New("not_found")

	// For concurrency conflicts
	ErrRowVersionConflict = errors.New("row_version_conflict")

	ErrNoRowsUpdated = errors.New("no_rows_updated")
)

func ValidationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func PreconditionFailedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPreconditionFailed, fmt.Sprintf(format, args...))
}

func InvalidTransitionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidStateTransition, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Unavailable marks a data store or collaborator failure. The cause stays
// in the chain so callers can still match context deadlines.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDependencyUnavailable, op, err)
}

// AppError for structured error handling from services to controllers.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// ToAppError maps an engine error kind onto its HTTP representation.
func ToAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, ErrDependencyUnavailable):
		return &AppError{http.StatusServiceUnavailable, ErrCodeDependencyUnavailable, "A dependency is unavailable", err}
	case errors.Is(err, ErrValidation):
		return &AppError{http.StatusBadRequest, ErrCodeValidation, err.Error(), err}
	case errors.Is(err, ErrNotFound):
		return &AppError{http.StatusNotFound, ErrCodeNotFound, "Resource not found", err}
	case errors.Is(err, ErrPreconditionFailed):
		return &AppError{http.StatusPreconditionFailed, ErrCodePreconditionFailed, err.Error(), err}
	case errors.Is(err, ErrInvalidStateTransition):
		return &AppError{http.StatusConflict, ErrCodeInvalidStateTransition, err.Error(), err}
	case errors.Is(err, ErrRowVersionConflict):
		return &AppError{http.StatusConflict, ErrCodeRowVersionConflict, "Record was modified concurrently", err}
	default:
		return &AppError{http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred", err}
	}
}

// HandleAppError centralizes responding to engine errors.
func HandleAppError(w http.ResponseWriter, err error) {
	appErr := ToAppError(err)
	RespondErrorWithCode(w, appErr.StatusCode, appErr.Code, appErr.Message, nil, appErr.Err)
}
