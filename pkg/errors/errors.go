package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinels classify failures independent of transport.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")
	ErrRateLimited        = errors.New("rate limited")
	ErrUnsupportedMedia   = errors.New("unsupported media type")
	ErrPersistence        = errors.New("persistence failure")
	ErrServiceUnavail     = errors.New("service unavailable")
	ErrForbidden          = errors.New("forbidden")
	ErrDependencyDegraded = errors.New("dependency degraded")
)

// Class is the client-facing rendering of a sentinel.
type Class struct {
	Status  int
	Code    string
	Message string
}

// classes maps each client-visible sentinel to its HTTP rendering. Anything
// not listed is an internal error.
var classes = []struct {
	sentinel error
	class    Class
}{
	{ErrNotFound, Class{http.StatusNotFound, "NOT_FOUND", "resource not found"}},
	{ErrInvalidInput, Class{http.StatusBadRequest, "INVALID_INPUT", "invalid input"}},
	{ErrConflict, Class{http.StatusConflict, "CONFLICT", "resource conflict"}},
	{ErrRateLimited, Class{http.StatusTooManyRequests, "RATE_LIMITED", "too many requests"}},
	{ErrUnsupportedMedia, Class{http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "unsupported media type"}},
	{ErrForbidden, Class{http.StatusForbidden, "FORBIDDEN", "access denied"}},
	{ErrServiceUnavail, Class{http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "service unavailable"}},
}

var internalClass = Class{http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"}

// AppError carries a client-facing code and message alongside the cause.
type AppError struct {
	Code       string        `json:"code"`
	Message    string        `json:"message"`
	Status     int           `json:"-"`
	Err        error         `json:"-"`
	RetryAfter time.Duration `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func classOf(sentinel error) Class {
	for _, c := range classes {
		if c.sentinel == sentinel {
			return c.class
		}
	}
	return internalClass
}

// New builds an AppError of the sentinel's class with a specific message.
func New(sentinel error, message string) *AppError {
	c := classOf(sentinel)
	return &AppError{Code: c.Code, Message: message, Status: c.Status, Err: sentinel}
}

// NotFound reports a missing resource by kind and id.
func NotFound(resource, id string) *AppError {
	return New(ErrNotFound, fmt.Sprintf("%s with id %s not found", resource, id))
}

// InvalidInput rejects a malformed request.
func InvalidInput(message string) *AppError { return New(ErrInvalidInput, message) }

// Conflict reports a state conflict.
func Conflict(message string) *AppError { return New(ErrConflict, message) }

// ServiceUnavailable reports a downstream that refused service.
func ServiceUnavailable(message string) *AppError { return New(ErrServiceUnavail, message) }

// UnsupportedMedia rejects a request body of the wrong content type.
func UnsupportedMedia(message string) *AppError { return New(ErrUnsupportedMedia, message) }

// Forbidden denies access.
func Forbidden(message string) *AppError { return New(ErrForbidden, message) }

// RateLimited rejects a request that may be retried after retryAfter.
func RateLimited(message string, retryAfter time.Duration) *AppError {
	e := New(ErrRateLimited, message)
	e.RetryAfter = retryAfter
	return e
}

// Persistence hides a store failure behind the generic internal message.
func Persistence(err error) *AppError {
	return &AppError{
		Code:    internalClass.Code,
		Message: internalClass.Message,
		Status:  internalClass.Status,
		Err:     fmt.Errorf("%w: %w", ErrPersistence, err),
	}
}

// Degraded marks a failed call to an optional dependency. Such errors are
// logged and counted but never surface to the client.
func Degraded(dependency string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDependencyDegraded, dependency, err)
}

// Classify resolves the client-facing status, code and message for err. An
// AppError keeps its own message; a bare sentinel gets the class default.
func Classify(err error) Class {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return Class{Status: appErr.Status, Code: appErr.Code, Message: appErr.Message}
	}
	for _, c := range classes {
		if errors.Is(err, c.sentinel) {
			return c.class
		}
	}
	return internalClass
}
