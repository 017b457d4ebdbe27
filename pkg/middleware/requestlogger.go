package middleware

import (
	"log/slog"
	"net/http"

	"github.com/trungse123/review-backend/pkg/logger"
)

// RequestLogger stores a logger carrying the correlation and trace ids in
// the request context, for handlers to fetch with logger.FromContext. Mount
// it inside RequestLogging and Tracing so both ids are already set.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger.WithContext(r.Context(), base).With(
				slog.Group("http",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				),
			)
			next.ServeHTTP(w, r.WithContext(logger.NewContext(r.Context(), l)))
		})
	}
}
