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

	"github.com/tarunbandi/repricer/internal/config"
	"github.com/tarunbandi/repricer/internal/database"
	"github.com/tarunbandi/repricer/internal/dataset"
	"github.com/tarunbandi/repricer/internal/modules/agent"
	"github.com/tarunbandi/repricer/internal/modules/explain"
	"github.com/tarunbandi/repricer/internal/modules/gbrt"
	"github.com/tarunbandi/repricer/internal/modules/market"
)

// Handlers bundles the module handlers the server routes to.
type Handlers struct {
	Market  *market.Handler
	Agent   *agent.Handler
	Demand  *gbrt.Handler
	Explain *explain.Handler
	Dataset *dataset.Handler
}

// Config holds server configuration
type Config struct {
	Port     int
	Log      zerolog.Logger
	DB       *database.DB
	Config   *config.Config
	Handlers Handlers
	DevMode  bool
}

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	db       *database.DB
	cfg      *config.Config
	handlers Handlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		log:      cfg.Log.With().Str("component", "server").Logger(),
		db:       cfg.DB,
		cfg:      cfg.Config,
		handlers: cfg.Handlers,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout; training a full schedule can take a while
	s.router.Use(middleware.Timeout(120 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		// System
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})

		// Dataset
		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.handlers.Dataset.HandleListProducts)
			r.Post("/seed", s.handlers.Dataset.HandleSeed)
			r.Post("/import", s.handlers.Dataset.HandleImportHistory)
		})

		// Market simulation
		r.Route("/market", func(r chi.Router) {
			r.Post("/simulate", s.handlers.Market.HandleSimulate)
			r.Get("/state-space", s.handlers.Market.HandleStateSpace)
		})

		// Agent
		r.Route("/agent", func(r chi.Router) {
			r.Post("/train", s.handlers.Agent.HandleTrain)
			r.Get("/policy", s.handlers.Agent.HandleGetPolicy)
			r.Post("/recommend", s.handlers.Agent.HandleRecommend)
			r.Post("/evaluate", s.handlers.Agent.HandleEvaluate)
			r.Get("/runs", s.handlers.Agent.HandleGetRuns)
		})

		// Demand model
		r.Route("/demand", func(r chi.Router) {
			r.Post("/fit", s.handlers.Demand.HandleFit)
			r.Post("/bind", s.handlers.Demand.HandleBind)
			r.Post("/unbind", s.handlers.Demand.HandleUnbind)
			r.Get("/model", s.handlers.Demand.HandleGetModel)
			r.Post("/curve", s.handlers.Demand.HandleCurve)
			r.Post("/dependence", s.handlers.Demand.HandleDependence)
		})

		// Explanations
		r.Post("/explain", s.handlers.Explain.HandleExplain)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
