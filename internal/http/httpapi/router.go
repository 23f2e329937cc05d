package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"contentgen/internal/http/handlers"
	"contentgen/internal/metrics"
	"contentgen/internal/middleware"
)

// RouterOptions carries the router's cross-cutting wiring.
type RouterOptions struct {
	JWTSecret       string
	AllowedOrigins  []string
	RateLimitPerMin int
	Logger          zerolog.Logger
	Metrics         *metrics.Collector
	// GoogleVerifier, when set, accepts Google ID tokens in addition to the
	// service's own session tokens.
	GoogleVerifier middleware.IDTokenVerifier
}

func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)
	if opts.Metrics != nil {
		r.Get("/metrics", opts.Metrics.Handler().ServeHTTP)
	}

	// Generation is open to anonymous callers while their free quota lasts.
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthOptional(opts.JWTSecret, opts.GoogleVerifier))
		r.Post("/v1/generate", app.Generate)
		r.Get("/v1/quota", app.Quota)
	})

	// Payments require a signed-in caller.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(opts.JWTSecret, opts.GoogleVerifier))
		r.Post("/v1/payments", app.InitiatePayment)
		r.Get("/v1/payments/{id}", app.PaymentStatus)
		r.Delete("/v1/payments/{id}", app.CancelPayment)
	})

	return r
}
