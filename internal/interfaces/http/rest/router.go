// Package rest exposes the connection finder and graph over HTTP.
package rest

import (
	"net/http"

	"hoopgraph-backend/internal/config"
	"hoopgraph-backend/internal/interfaces/http/rest/handlers"
	"hoopgraph-backend/internal/interfaces/http/rest/middleware"
	"hoopgraph-backend/internal/observability"
	apperrors "hoopgraph-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg          *config.Config
	finder       handlers.ConnectionFinder
	graphs       handlers.GraphSource
	verifier     middleware.TokenVerifier
	metrics      *observability.Collector
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewRouter creates a new router instance. verifier is only consulted when
// auth is enabled; metrics may be nil.
func NewRouter(
	cfg *config.Config,
	finder handlers.ConnectionFinder,
	graphs handlers.GraphSource,
	verifier middleware.TokenVerifier,
	metrics *observability.Collector,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:          cfg,
		finder:       finder,
		graphs:       graphs,
		verifier:     verifier,
		metrics:      metrics,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(rt.logger.Named("http"), rt.metrics))
	router.Use(rt.errorHandler.Middleware)

	if rt.cfg.CORS.Enabled {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.cfg.CORS.AllowedOrigins,
			AllowedMethods:   rt.cfg.CORS.AllowedMethods,
			AllowedHeaders:   rt.cfg.CORS.AllowedHeaders,
			ExposedHeaders:   []string{middleware.RequestIDHeader},
			AllowCredentials: false,
			MaxAge:           rt.cfg.CORS.MaxAge,
		}))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errorHandler.Handle(w, r, apperrors.NewNotFoundError("route"))
	})

	health := handlers.NewHealthHandler(rt.graphs, rt.cfg.Server.RequestTimeout, rt.errorHandler, rt.logger)
	router.Get("/health", health.Liveness)
	router.Get("/ready", health.Readiness)

	if rt.cfg.Metrics.Enabled && rt.metrics != nil {
		router.Method(http.MethodGet, rt.cfg.Metrics.Path, rt.metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(rt.cfg.Server.RequestTimeout))
		r.Use(chimiddleware.RequestSize(rt.cfg.Server.MaxRequestSize))
		if rt.cfg.RateLimit.Enabled {
			limiter := middleware.NewClientRateLimiter(
				rt.cfg.RateLimit.RequestsPerMinute,
				rt.cfg.RateLimit.Burst,
				rt.cfg.RateLimit.CleanupInterval,
			)
			r.Use(limiter.Middleware(rt.errorHandler))
		}
		if rt.cfg.Auth.Enabled {
			r.Use(middleware.Authenticate(rt.verifier, rt.errorHandler, rt.logger))
		}

		connections := handlers.NewConnectionHandler(rt.finder, rt.errorHandler, rt.logger)
		r.Get("/connections", connections.GetConnection)
		r.Post("/connections", connections.PostConnection)

		players := handlers.NewPlayerHandler(rt.graphs, rt.cfg.Search.PlayerSearchLimit, rt.cfg.Search.MaxDegrees, rt.errorHandler, rt.logger)
		r.Get("/players", players.SearchPlayers)
		r.Get("/players/{playerID}", players.GetPlayer)
		r.Get("/graph/stats", players.GetGraphStats)
	})

	return router
}
