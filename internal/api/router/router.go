package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/barbershop-scheduler/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/barbershop-scheduler/internal/http/middleware"
	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Session            *handlers.SessionHandler
	SessionGate        httpmiddleware.SessionChecker
	Providers          *handlers.ProvidersHandler
	Schedule           *handlers.ScheduleHandler
	Notifications      *handlers.NotificationsHandler
	NotificationsHub   http.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates the chi router for the scheduling API.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Session != nil {
			public.Post("/session", cfg.Session.Establish)
			public.Get("/session", cfg.Session.Get)
			public.Delete("/session", cfg.Session.SignOut)
		}
	})

	r.Group(func(authed chi.Router) {
		authed.Use(httpmiddleware.RequireSession(cfg.SessionGate))

		if cfg.Providers != nil {
			authed.Route("/providers", func(r chi.Router) {
				r.Get("/", cfg.Providers.List)
				r.Route("/{providerID}", func(r chi.Router) {
					r.Get("/", cfg.Providers.Get)
					r.Put("/date", cfg.Providers.SelectDate)
					r.Put("/month", cfg.Providers.SelectMonth)
					r.Put("/slot", cfg.Providers.SelectSlot)
					r.Post("/appointments", cfg.Providers.Book)
				})
			})
		}
		if cfg.Schedule != nil {
			authed.Route("/schedule", func(r chi.Router) {
				r.Get("/", cfg.Schedule.Get)
				r.Put("/date", cfg.Schedule.SelectDate)
				r.Put("/month", cfg.Schedule.SelectMonth)
				r.Post("/appointments/{appointmentID}/complete", cfg.Schedule.Complete)
				r.Delete("/appointments/{appointmentID}", cfg.Schedule.Cancel)
			})
		}
		if cfg.Notifications != nil {
			authed.Get("/notifications", cfg.Notifications.Drain)
		}
		if cfg.NotificationsHub != nil {
			authed.Handle("/notifications/ws", cfg.NotificationsHub)
		}
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
}
