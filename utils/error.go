package utils

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorKind classifies an AppError for transport mapping and tests.
type ErrorKind string

const (
	ErrorKindValidation    ErrorKind = "validation"
	ErrorKindConflict      ErrorKind = "conflict"
	ErrorKindNotFound      ErrorKind = "not_found"
	ErrorKindForbidden     ErrorKind = "forbidden"
	ErrorKindAuthorization ErrorKind = "authorization"
	ErrorKindDependency    ErrorKind = "dependency"
)

type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func ValidationError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrorKindValidation, Message: fmt.Sprintf(format, args...)}
}

func ConflictError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrorKindConflict, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrorKindNotFound, Message: fmt.Sprintf(format, args...), Err: ErrorRecordNotFound}
}

func ForbiddenError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrorKindForbidden, Message: fmt.Sprintf(format, args...)}
}

func AuthorizationError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrorKindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func DependencyError(message string, err error) *AppError {
	return &AppError{Kind: ErrorKindDependency, Message: message, Err: err}
}

// KindOf returns the error's kind, defaulting unknown errors to dependency
// (an unclassified failure is a collaborator problem, not a client one).
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, ErrorRecordNotFound) {
		return ErrorKindNotFound
	}
	return ErrorKindDependency
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrorKindValidation:
		return http.StatusBadRequest
	case ErrorKindAuthorization:
		return http.StatusUnauthorized
	case ErrorKindForbidden:
		return http.StatusForbidden
	case ErrorKindNotFound:
		return http.StatusNotFound
	case ErrorKindConflict:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}
