package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/trungse123/review-backend/pkg/errors"
	"github.com/trungse123/review-backend/pkg/logger"
	"github.com/trungse123/review-backend/pkg/validator"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *ErrorResponse {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusAccepted, map[string]int{"count": 3})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"count":3}`, rec.Body.String())
}

func TestWriteMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteMessage(rec, http.StatusCreated, "review submitted successfully", map[string]any{"message": "ignored", "id": "r-1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"message":"review submitted successfully","id":"r-1"}`, rec.Body.String())
}

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"app error", apperrors.NotFound("review", "r-1"), http.StatusNotFound, "NOT_FOUND", "review with id r-1 not found"},
		{"wrapped sentinel", fmt.Errorf("approve: %w", apperrors.ErrNotFound), http.StatusNotFound, "NOT_FOUND", "resource not found"},
		{"invalid input keeps detail", fmt.Errorf("rating: %w", apperrors.ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT", "rating: invalid input"},
		{"media", apperrors.UnsupportedMedia("use JSON"), http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "use JSON"},
		{"persistence hides cause", apperrors.Persistence(fmt.Errorf("password authentication failed")), http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"},
		{"unknown", fmt.Errorf("nil map write"), http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, httptest.NewRequest(http.MethodGet, "/api/reviews/x", nil), tt.err, discard())

			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.message, body.Message)
			assert.Empty(t, body.RequestID)
		})
	}
}

func TestWriteError_RetryAfterRoundsUp(t *testing.T) {
	for wait, want := range map[time.Duration]string{
		6200 * time.Millisecond: "7",
		10 * time.Millisecond:   "1",
		time.Minute:             "60",
	} {
		rec := httptest.NewRecorder()
		WriteError(rec, httptest.NewRequest(http.MethodPost, "/api/reviews/create", nil), apperrors.RateLimited("wait", wait), discard())

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, want, rec.Header().Get("Retry-After"))
	}
}

func TestWriteError_ValidationFields(t *testing.T) {
	type reply struct {
		Name    string `json:"name" validate:"required"`
		Content string `json:"content" validate:"required"`
	}

	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodPost, "/", nil), validator.Validate(reply{}), discard())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Equal(t, map[string]string{"name": "is required", "content": "is required"}, body.Fields)
}

func TestWriteError_RequestIDAndScopedLogger(t *testing.T) {
	var scoped, fallback bytes.Buffer
	ctx := logger.WithCorrelationID(context.Background(), "corr-123")
	ctx = logger.NewContext(ctx, slog.New(slog.NewJSONHandler(&scoped, nil)))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/reviews/summary/p-1", nil).WithContext(ctx)
	WriteError(rec, req, fmt.Errorf("scan failed"), slog.New(slog.NewJSONHandler(&fallback, nil)))

	assert.Equal(t, "corr-123", decodeError(t, rec).RequestID)
	assert.Contains(t, scoped.String(), "scan failed")
	assert.Empty(t, fallback.String())
}

func TestWriteError_ClientErrorsNotLogged(t *testing.T) {
	var buf bytes.Buffer
	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), apperrors.InvalidInput("bad"), slog.New(slog.NewJSONHandler(&buf, nil)))

	assert.Empty(t, buf.String())
}

func TestNewPaginatedResponse(t *testing.T) {
	tests := []struct {
		total, page, perPage int
		wantPages            int
		wantNext             bool
	}{
		{total: 12, page: 1, perPage: 5, wantPages: 3, wantNext: true},
		{total: 12, page: 3, perPage: 5, wantPages: 3, wantNext: false},
		{total: 10, page: 2, perPage: 5, wantPages: 2, wantNext: false},
		{total: 0, page: 1, perPage: 5, wantPages: 0, wantNext: false},
		{total: 3, page: 1, perPage: 0, wantPages: 3, wantNext: true},
	}
	for _, tt := range tests {
		p := NewPaginatedResponse[string](nil, tt.total, tt.page, tt.perPage)
		assert.Equal(t, tt.wantPages, p.TotalPages, "%+v", tt)
		assert.Equal(t, tt.wantNext, p.HasNext, "%+v", tt)
		assert.NotNil(t, p.Data)
	}
}

func TestPaginatedResponse_JSON(t *testing.T) {
	b, err := json.Marshal(NewPaginatedResponse([]int{1, 2}, 2, 1, 5))
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[1,2],"total_count":2,"page":1,"per_page":5,"total_pages":1,"has_next":false}`, string(b))
}
