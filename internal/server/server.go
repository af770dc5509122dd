package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/carelink/carelink-be/internal/accounts"
	"github.com/carelink/carelink-be/internal/auth"
	"github.com/carelink/carelink-be/internal/config"
	"github.com/carelink/carelink-be/internal/http/handlers"
	"github.com/carelink/carelink-be/internal/middleware"
	"github.com/carelink/carelink-be/internal/records"
)

// Deps are the services the router exposes.
type Deps struct {
	Accounts *accounts.Service
	Records  *records.Service
	Tokens   *auth.TokenManager
	// DB is pinged by /health; nil skips the check.
	DB handlers.Pinger
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// NewRouter wires middleware and routes.
func NewRouter(cfg config.Config, deps Deps) (http.Handler, error) {
	realIP, err := middleware.RealIP(cfg.TrustedProxyList())
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(realIP)
	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(chimw.StripSlashes)

	handlers.NewHealthHandler(time.Now(), deps.DB).Register(r)

	throttle := middleware.NewThrottle(cfg.ThrottleRPS, cfg.ThrottleBurst)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(throttle.Handler)
			handlers.NewAuthHandler(deps.Accounts).Register(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(deps.Tokens))
			r.Use(throttle.Handler)
			r.Route("/patients", handlers.NewPatientHandler(deps.Records).Register)
			r.Route("/doctors", handlers.NewDoctorHandler(deps.Records).Register)
			r.Route("/mappings", handlers.NewMappingHandler(deps.Records).Register)
		})
	})

	return middleware.CORS(cfg.CORSOrigins(), r), nil
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, deps Deps) (*Server, error) {
	handler, err := NewRouter(cfg, deps)
	if err != nil {
		return nil, err
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}, nil
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
