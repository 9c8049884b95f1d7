package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	httpx "github.com/dropDatabas3/authbroker/internal/http"
	"github.com/dropDatabas3/authbroker/internal/http/handlers"
	"github.com/dropDatabas3/authbroker/internal/rate"
)

// RouterConfig lleva todo lo que la tabla de rutas necesita además de
// los handlers.
type RouterConfig struct {
	AdminAPIKey string
	CORSOrigins []string

	Limiter      *rate.Limiter
	RateEnabled  bool
	LoginLimit   int
	LoginWindow  time.Duration
	SocialLimit  int
	SocialWindow time.Duration

	Registry *prometheus.Registry
	Pingers  map[string]handlers.Pinger
}

// NewRouter arma la tabla de rutas completa.
func NewRouter(h *handlers.Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	limit := func(name string, n int, w time.Duration) func(http.Handler) http.Handler {
		if !cfg.RateEnabled || cfg.Limiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return func(next http.Handler) http.Handler {
			return httpx.WithRateLimit(cfg.Limiter, name, n, w)(next)
		}
	}

	r.Get("/healthz", handlers.Healthz)
	r.Get("/readyz", handlers.Readyz(cfg.Pingers))
	r.Method(http.MethodGet, "/metrics", httpx.MetricsHandler(cfg.Registry))

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(httpx.WithMetrics("/api/auth"))
		r.Post("/validate-client", h.ValidateClient)
		r.Get("/client-info", h.ClientInfo)

		r.Group(func(r chi.Router) {
			r.Use(limit("social", cfg.SocialLimit, cfg.SocialWindow))
			r.Get("/{provider}/start", handlers.RequireProvider(h.SocialStart))
			r.Get("/{provider}/callback", handlers.RequireProvider(h.SocialCallback))
		})
	})

	r.Route("/api/rest/auth", func(r chi.Router) {
		r.Use(httpx.WithMetrics("/api/rest/auth"))
		r.Group(func(r chi.Router) {
			r.Use(limit("login", cfg.LoginLimit, cfg.LoginWindow))
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/biometric-login", h.BiometricLogin)
		})
		r.Group(func(r chi.Router) {
			r.Use(limit("social", cfg.SocialLimit, cfg.SocialWindow))
			r.Post("/google", h.GoogleNative)
			r.Post("/facebook", h.FacebookNative)
		})
		r.Get("/user", h.CurrentUser)
	})

	r.Route("/api/admin/clients", func(r chi.Router) {
		r.Use(httpx.WithMetrics("/api/admin/clients"))
		r.Use(httpx.RequireAdminKey(cfg.AdminAPIKey))
		r.Post("/", h.CreateClient)
		r.Get("/", h.ListClients)
		r.Get("/{id}", h.GetClient)
		r.Put("/{id}", h.UpdateClient)
		r.Delete("/{id}", h.DeleteClient)
	})

	return httpx.Chain(r,
		httpx.WithRequestID(),
		httpx.WithSecurityHeaders(),
		httpx.WithCORS(cfg.CORSOrigins),
		httpx.WithLogging(),
	)
}
