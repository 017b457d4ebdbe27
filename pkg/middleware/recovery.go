package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	apperrors "github.com/trungse123/review-backend/pkg/errors"
	"github.com/trungse123/review-backend/pkg/httputil"
	"github.com/trungse123/review-backend/pkg/logger"
)

// Recovery turns a handler panic into a logged stack trace and a 500. If the
// handler already started its response, the panic is only logged.
// http.ErrAbortHandler is re-raised for net/http to handle.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := wrapWriter(w)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				ctx := r.Context()
				logger.WithContext(ctx, l).ErrorContext(ctx, "panic recovered",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Bool("response_started", sw.wroteHeader),
				)
				if sw.wroteHeader {
					return
				}

				class := apperrors.Classify(nil)
				httputil.WriteJSON(sw, class.Status, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:      class.Code,
						Message:   class.Message,
						RequestID: logger.CorrelationIDFromContext(ctx),
					},
				})
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
