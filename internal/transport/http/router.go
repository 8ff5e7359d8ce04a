package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"glycoimpute/internal/config"
	apierrors "glycoimpute/internal/errors"
	"glycoimpute/internal/impute"
	custommw "glycoimpute/internal/middleware"
	"glycoimpute/internal/services"
)

// NewRouter assembles the service's middleware chain and routes.
// metricsHandler, when non-nil, is mounted at /metrics.
func NewRouter(cfg *config.Config, service *services.ImputationService, ref *impute.Reference, logger *slog.Logger, metricsHandler http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)
	r.Use(custommw.StructuredLogger(logger))
	r.Use(custommw.Recoverer(logger))
	r.Use(custommw.SecurityHeaders)
	r.Use(custommw.Compress(5))

	if cfg.Security.EnableCORS {
		r.Use(custommw.CORS(custommw.CORSConfig{AllowedOrigins: cfg.Security.AllowedOrigins}))
	}
	if cfg.Security.RateLimit.Enabled {
		limiter := custommw.NewRateLimiter(cfg.Security.RateLimit.RPS, cfg.Security.RateLimit.Burst, logger)
		r.Use(limiter.Handler)
	}

	errorHandler := apierrors.NewErrorHandler(logger)
	imputation := NewImputationHandler(service, ref, logger, errorHandler, cfg.Server.MaxUploadBytes)
	health := NewHealthHandler()

	r.Route("/api", func(r chi.Router) {
		r.Mount("/", imputation.Routes())
		r.Get("/healthz", health.Healthz)
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	return r
}
