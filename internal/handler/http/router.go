package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IntegratedRai444/zipzydeliver-sub001/pkg/health"
	"github.com/IntegratedRai444/zipzydeliver-sub001/pkg/middleware"
)

// NewRouter creates a chi router with all notification engine routes registered.
func NewRouter(
	handler *NotificationHandler,
	healthHandler *health.Handler,
	logger *slog.Logger,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("notification"))
	r.Use(middleware.Tracing("notification"))
	r.Use(middleware.Identity)
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	// Notification API endpoints
	r.Route("/api/v1/notifications", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/send", handler.Send)
		r.Post("/send/template", handler.SendTemplate)

		// The template catalog is immutable for a running process.
		r.With(middleware.CacheControl(300)).Get("/templates", handler.ListTemplates)

		r.Get("/preferences/{userID}", handler.GetPreferences)
		r.Put("/preferences/{userID}", handler.UpdatePreferences)

		r.Post("/subscriptions", handler.Subscribe)
		r.Delete("/subscriptions", handler.Unsubscribe)

		r.Get("/history/{userID}", handler.GetHistory)
		r.Get("/stats", handler.GetStats)

		r.Get("/user/{userID}", handler.ListUserNotifications)
		r.Put("/{id}/read", handler.MarkAsRead)
	})

	return r
}
