// Package server provides the HTTP server and routing for the booking
// engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/mkrallis/swapbook/internal/config"
	"github.com/mkrallis/swapbook/internal/database"
	"github.com/mkrallis/swapbook/internal/events"
	"github.com/mkrallis/swapbook/internal/modules/refdata"
	"github.com/mkrallis/swapbook/internal/modules/trades"
)

// Deps carries the wired services the server routes to.
type Deps struct {
	Config          *config.Config
	Log             zerolog.Logger
	Databases       map[string]*database.DB
	TradeHandlers   *trades.Handlers
	RefdataHandlers *refdata.Handlers
	Identity        *refdata.Repository
	Events          *events.Manager
}

// Server is the HTTP front of the booking engine.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	deps    Deps
	started time.Time
}

// New creates the HTTP server with middleware and routes configured.
func New(deps Deps) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		log:     deps.Log.With().Str("component", "server").Logger(),
		deps:    deps,
		started: time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", deps.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-Login"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !s.deps.Config.DevMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.identityMiddleware)

		r.Route("/system", func(r chi.Router) {
			r.Get("/health", s.handleSystemHealth)
		})

		r.Route("/refdata", func(r chi.Router) {
			h := s.deps.RefdataHandlers
			r.Get("/", h.HandleSnapshot)
			r.Get("/books", h.HandleBooks)
			r.Get("/counterparties", h.HandleCounterparties)
			r.Get("/currencies", h.HandleCurrencies)
			r.Get("/indices", h.HandleIndices)
			r.Get("/schedules", h.HandleSchedules)
			r.Get("/conventions", h.HandleConventions)
			r.Get("/statuses", h.HandleStatuses)
		})

		r.Route("/trades", func(r chi.Router) {
			h := s.deps.TradeHandlers
			r.Post("/", h.HandleCreate)
			r.Get("/", h.HandleList)
			r.Get("/search", h.HandleSearch)
			r.Get("/rsql", h.HandleSearchRSQL)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.HandleGet)
				r.Put("/", h.HandleAmend)
				r.Delete("/", h.HandleDelete)
				r.Post("/terminate", h.HandleTerminate)
				r.Post("/cancel", h.HandleCancel)
				r.Get("/history", h.HandleHistory)
				r.Get("/cashflows", h.HandleCashflows)

				r.Route("/settlement-instructions", func(r chi.Router) {
					r.Get("/", h.HandleGetSettlementInstructions)
					r.Put("/", h.HandlePutSettlementInstructions)
					r.Get("/audit", h.HandleSettlementAudit)
				})
			})
		})

		r.Get("/events/ws", s.handleEventsWS)
	})
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.deps.Config.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration_ms", time.Since(start)).
			Msg("Request handled")
	})
}
