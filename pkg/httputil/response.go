package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	apperrors "github.com/trungse123/review-backend/pkg/errors"
	"github.com/trungse123/review-backend/pkg/logger"
	"github.com/trungse123/review-backend/pkg/validator"
)

// Response is the error envelope, and the data envelope where one is used.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON encodes v with the given status. Encoding errors are dropped
// since the status line is already out.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteMessage writes {"message": msg} merged with extra top-level fields.
func WriteMessage(w http.ResponseWriter, status int, msg string, extra map[string]any) {
	body := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		body[k] = v
	}
	body["message"] = msg
	WriteJSON(w, status, body)
}

// WriteError renders err as an error envelope. Validation failures list
// their fields, rate limits set Retry-After, and 5xx causes are logged but
// never echoed. The request-scoped logger is preferred over fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	body := &ErrorResponse{RequestID: logger.CorrelationIDFromContext(r.Context())}

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		body.Code = "VALIDATION_ERROR"
		body.Message = "request validation failed"
		body.Fields = valErr.Fields()
		WriteJSON(w, http.StatusBadRequest, Response{Error: body})
		return
	}

	class := apperrors.Classify(err)
	body.Code, body.Message = class.Code, class.Message

	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		if appErr.RetryAfter > 0 {
			w.Header().Set("Retry-After", retryAfterSeconds(appErr.RetryAfter.Seconds()))
		}
	case errors.Is(err, apperrors.ErrInvalidInput):
		// A wrapped sentinel carries the detail in its chain.
		body.Message = err.Error()
	}

	if class.Status >= http.StatusInternalServerError {
		l := logger.FromContext(r.Context())
		if l == slog.Default() && fallback != nil {
			l = fallback
		}
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, class.Status, Response{Error: body})
}

// retryAfterSeconds rounds a wait up to whole seconds, at least 1.
func retryAfterSeconds(secs float64) string {
	return strconv.Itoa(max(1, int(math.Ceil(secs))))
}

// PaginatedResponse is a page of items with its position in the result set.
type PaginatedResponse[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// NewPaginatedResponse derives the page count from total and perPage.
func NewPaginatedResponse[T any](data []T, total, page, perPage int) PaginatedResponse[T] {
	perPage = max(perPage, 1)
	pages := (total + perPage - 1) / perPage
	if data == nil {
		data = []T{}
	}
	return PaginatedResponse[T]{
		Data:       data,
		TotalCount: total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: pages,
		HasNext:    page < pages,
	}
}
