package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/amaraspa/scheduling-platform/internal/http/middleware"
	"github.com/amaraspa/scheduling-platform/internal/reminders"
	"github.com/amaraspa/scheduling-platform/internal/scheduling"
	"github.com/amaraspa/scheduling-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	SchedulingHandler  *scheduling.Handler
	RemindersHandler   *reminders.Handler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Requests/sec per client IP on the public booking surface. Zero
	// disables rate limiting.
	PublicRateLimit float64
	PublicRateBurst int

	// HealthCheck reports readiness of the backing stores; nil means the
	// endpoint only confirms the process is up.
	HealthCheck func(r *http.Request) error
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if cfg.HealthCheck != nil {
			if err := cfg.HealthCheck(req); err != nil {
				http.Error(w, `{"status": "unavailable"}`, http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Public booking surface.
	r.Group(func(public chi.Router) {
		if cfg.PublicRateLimit > 0 {
			public.Use(httpmiddleware.RateLimit(cfg.PublicRateLimit, cfg.PublicRateBurst))
		}
		if cfg.SchedulingHandler != nil {
			cfg.SchedulingHandler.Register(public)
		}
		if cfg.RemindersHandler != nil {
			cfg.RemindersHandler.Register(public)
		}
	})

	// Admin routes, protected by an HMAC JWT.
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.SchedulingHandler != nil {
				cfg.SchedulingHandler.RegisterAdmin(admin)
			}
			if cfg.RemindersHandler != nil {
				cfg.RemindersHandler.RegisterAdmin(admin)
			}
		})
	}

	return r
}
