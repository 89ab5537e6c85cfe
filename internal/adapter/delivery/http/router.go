// Package http provides the HTTP delivery layer for the URL shortener service.
// This package contains the HTTP handlers and related types used for processing
// incoming requests, validating input, and formatting responses.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/tinyurl/internal/usecase"
	"github.com/vadimbarashkov/tinyurl/pkg/middleware/recoverer"

	httpSwagger "github.com/swaggo/http-swagger"
)

type routerOptions struct {
	limiter        rateLimiter
	metricsHandler http.Handler
	swaggerFile    string
}

// RouterOption enables optional parts of the router.
type RouterOption func(*routerOptions)

// WithRateLimiter limits URL creation per client IP.
func WithRateLimiter(limiter rateLimiter) RouterOption {
	return func(o *routerOptions) {
		o.limiter = limiter
	}
}

// WithMetricsHandler serves h under /metrics.
func WithMetricsHandler(h http.Handler) RouterOption {
	return func(o *routerOptions) {
		o.metricsHandler = h
	}
}

// WithSwagger serves the OpenAPI document at path and the Swagger UI for it.
func WithSwagger(path string) RouterOption {
	return func(o *routerOptions) {
		o.swaggerFile = path
	}
}

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the URL shortener API.
func NewRouter(logger *httplog.Logger, urlUseCase urlUseCase, opts ...RouterOption) *chi.Mux {
	var o routerOptions
	for _, opt := range opts {
		opt(&o)
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger))

	if o.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", o.metricsHandler)
	}

	if o.swaggerFile != "" {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/docs/swagger.yml"),
		))

		r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, o.swaggerFile)
		})
	}

	h := newURLHandler(urlUseCase, validator.New())

	r.Get(usecase.RedirectPath+"{code}", h.redirect)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", handlePing)

		r.Route("/urls", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if o.limiter != nil {
					r.Use(rateLimit(o.limiter))
				}
				r.Use(middleware.AllowContentType("application/json"))
				r.Post("/", h.createURL)
			})

			r.Get("/{code}", h.getMetadata)
		})
	})

	return r
}
