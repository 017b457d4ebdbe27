package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		sentinel error
		status   int
		code     string
	}{
		{"not found", NotFound("review", "r-1"), ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"invalid", InvalidInput("phone is required"), ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
		{"conflict", Conflict("duplicate"), ErrConflict, http.StatusConflict, "CONFLICT"},
		{"rate limited", RateLimited("wait", 3*time.Second), ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"media", UnsupportedMedia("text/plain"), ErrUnsupportedMedia, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE"},
		{"forbidden", Forbidden("nope"), ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"unavailable", ServiceUnavailable("maintenance"), ErrServiceUnavail, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, Classify(fmt.Errorf("wrapped: %w", tt.err)).Status)
		})
	}
}

func TestNotFound_Message(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: review with id r-1 not found", NotFound("review", "r-1").Error())
}

func TestRateLimited_RetryAfter(t *testing.T) {
	assert.Equal(t, 7*time.Second, RateLimited("slow down", 7*time.Second).RetryAfter)
}

func TestPersistence_HidesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence(cause)

	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, Class{http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"}, Classify(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestDegraded(t *testing.T) {
	cause := errors.New("timeout")
	err := Degraded("purchase-verification", cause)

	assert.ErrorIs(t, err, ErrDependencyDegraded)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "purchase-verification")
	assert.Equal(t, http.StatusInternalServerError, Classify(err).Status)
}

func TestClassify_BareSentinels(t *testing.T) {
	tests := []struct {
		err  error
		want Class
	}{
		{fmt.Errorf("get review: %w", ErrNotFound), Class{http.StatusNotFound, "NOT_FOUND", "resource not found"}},
		{ErrRateLimited, Class{http.StatusTooManyRequests, "RATE_LIMITED", "too many requests"}},
		{errors.New("boom"), internalClass},
		{nil, internalClass},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), "%v", tt.err)
	}
}

func TestAppError_Unwrap(t *testing.T) {
	assert.Nil(t, (&AppError{Code: "X", Message: "y"}).Unwrap())
	assert.Equal(t, "X: y", (&AppError{Code: "X", Message: "y"}).Error())
}
