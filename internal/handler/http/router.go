package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trungse123/review-backend/internal/service"
	"github.com/trungse123/review-backend/pkg/health"
	"github.com/trungse123/review-backend/pkg/middleware"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	CORS           middleware.CORSConfig
	RateLimitRPS   float64
	RateLimitBurst int
	// MediaDir, when set, is served read-only under /uploads.
	MediaDir   string
	PprofCIDRs []string
}

// NewRouter creates a chi router with all review service routes registered.
func NewRouter(
	reviewService *service.ReviewService,
	mediaService *service.MediaService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.PrometheusMetrics("review"))
	r.Use(middleware.Tracing("review-service"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("pong"))
	})

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	if cfg.MediaDir != "" {
		files := http.StripPrefix("/uploads/", http.FileServer(fileOnlyFS{fs: http.Dir(cfg.MediaDir)}))
		r.With(middleware.CacheControl(24*time.Hour, true)).Get("/uploads/*", files.ServeHTTP)
	}

	// Review API endpoints
	reviewHandler := NewReviewHandler(reviewService, mediaService, logger)

	r.Route("/api/review", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		create := http.HandlerFunc(reviewHandler.CreateReview)
		if cfg.RateLimitRPS > 0 {
			r.With(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)).Post("/create", create)
		} else {
			r.Post("/create", create)
		}

		r.Get("/product/{productId}", reviewHandler.ListReviews)
		r.Get("/product/{productId}/summary", reviewHandler.GetSummary)
		r.Get("/quota", reviewHandler.GetQuota)
		r.Post("/approve/{id}", reviewHandler.ApproveReview)
		r.Post("/{id}/reply", reviewHandler.ReplyToReview)
	})

	return r
}
