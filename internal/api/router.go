package api

import (
	"net/http"

	"github.com/Rrens/energy-agent/internal/api/handler"
	customMiddleware "github.com/Rrens/energy-agent/internal/api/middleware"
	"github.com/Rrens/energy-agent/internal/config"
	"github.com/Rrens/energy-agent/internal/security"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the services the HTTP layer is built on
type Dependencies struct {
	JWT         *security.JWTManager
	Limiter     customMiddleware.Limiter
	Chat        handler.ChatService
	Sessions    handler.SessionService
	Collections handler.CollectionService
	Artifacts   handler.ArtifactService
	Cache       handler.CacheFlusher
	Providers   handler.ProviderLister
	Readiness   []handler.ReadinessCheck
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.Server.MiddlewareTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))
	}

	// CORS
	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.Handler())
	}

	chatHandler := handler.NewChatHandler(deps.Chat)
	sessionHandler := handler.NewSessionHandler(deps.Sessions)
	collectionHandler := handler.NewCollectionHandler(deps.Collections)
	artifactHandler := handler.NewArtifactHandler(deps.Artifacts)

	authMiddleware := customMiddleware.NewAuthMiddleware(deps.JWT)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Readiness...))

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			if deps.Limiter != nil {
				r.Use(customMiddleware.NewRateLimitMiddleware(deps.Limiter).Limit)
			}

			r.Post("/chat", chatHandler.Post)

			r.Get("/llm-providers", handler.ListLLMProviders(deps.Providers))
			r.Post("/cache/flush", handler.FlushCache(deps.Cache))

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", sessionHandler.List)
				r.Post("/", sessionHandler.Create)

				r.Route("/{sessionID}", func(r chi.Router) {
					r.Get("/", sessionHandler.Get)
					r.Patch("/", sessionHandler.Update)
					r.Delete("/", sessionHandler.Delete)
					r.Get("/messages", sessionHandler.Messages)
					r.Get("/thought-steps", sessionHandler.ThoughtSteps)
				})
			})

			r.Route("/collections", func(r chi.Router) {
				r.Get("/", collectionHandler.List)
				r.Post("/", collectionHandler.Create)
				r.Get("/{collectionID}", collectionHandler.Get)
			})

			r.Route("/artifacts", func(r chi.Router) {
				r.Get("/", artifactHandler.List)
				r.Delete("/", artifactHandler.Delete)
				r.Get("/*", artifactHandler.Get)
			})
		})
	})

	return r
}
