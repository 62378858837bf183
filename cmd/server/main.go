package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Rrens/energy-agent/internal/agent"
	"github.com/Rrens/energy-agent/internal/agent/edicraft"
	"github.com/Rrens/energy-agent/internal/agent/maintenance"
	"github.com/Rrens/energy-agent/internal/agent/petrophysics"
	"github.com/Rrens/energy-agent/internal/agent/renewable"
	"github.com/Rrens/energy-agent/internal/api"
	"github.com/Rrens/energy-agent/internal/api/handler"
	"github.com/Rrens/energy-agent/internal/catalog"
	"github.com/Rrens/energy-agent/internal/config"
	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/Rrens/energy-agent/internal/history"
	"github.com/Rrens/energy-agent/internal/llm"
	"github.com/Rrens/energy-agent/internal/llm/gemini"
	"github.com/Rrens/energy-agent/internal/llm/langchain"
	"github.com/Rrens/energy-agent/internal/llm/openai"
	"github.com/Rrens/energy-agent/internal/logger"
	"github.com/Rrens/energy-agent/internal/repository/postgres"
	"github.com/Rrens/energy-agent/internal/repository/redis"
	"github.com/Rrens/energy-agent/internal/scope"
	"github.com/Rrens/energy-agent/internal/security"
	"github.com/Rrens/energy-agent/internal/service"
	"github.com/Rrens/energy-agent/internal/storage"
	"github.com/Rrens/energy-agent/internal/trace"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load .env file - try multiple locations
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded .env from: %s\n", p)
			break
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logFile, err := logger.Setup(cfg.Logging, cfg.IsProduction())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer logFile.Close()

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
	log.Info().Msg("Server stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("env", cfg.Env).
		Msg("Starting energy agent API server")

	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (JWT_SECRET) is required")
	}

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize Redis
	redisClient, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	// Object store for artifacts and well files
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open object store: %w", err)
	}
	defer store.Close(context.Background())

	// Well catalog. Connections are pooled and retried per request.
	catalogs := catalog.NewDefaultRouter()
	defer catalogs.CloseAll()
	wells := newCatalogResolver(cfg, catalogs)
	if _, err := wells.Source(ctx); err != nil {
		log.Warn().Err(err).Str("driver", cfg.Catalog.Driver).Msg("Well catalog unavailable, will retry on demand")
	}

	providers := newLLMRouter(cfg)

	guard, err := scope.NewGuard(cfg.Scope.EntityPattern, cfg.Scope.PreviewLimit)
	if err != nil {
		return fmt.Errorf("invalid scope guard config: %w", err)
	}

	// Repositories
	sessionRepo := postgres.NewSessionRepository(db.Pool)
	messageRepo := postgres.NewMessageRepository(db.Pool)
	collectionRepo := postgres.NewCollectionRepository(db.Pool)
	thoughtStore := redis.NewThoughtStore(redisClient, cfg.Redis.StepTTL)
	collectionCache := redis.NewCollectionCache(redisClient, cfg.Redis.CollectionTTL)

	streamer := trace.NewStreamer(thoughtStore, cfg.Agent.StreamQueueSize, cfg.Agent.StreamTimeout)
	defer streamer.Close()

	// Agents
	routerOpts := []agent.RouterOption{}
	if defaultAgent, ok := domain.ParseAgentType(cfg.Agent.DefaultAgent); ok {
		routerOpts = append(routerOpts, agent.WithDefaultAgent(defaultAgent))
	} else {
		log.Warn().Str("default_agent", cfg.Agent.DefaultAgent).Msg("Unknown default agent, using petrophysics")
	}
	if cfg.Agent.LLMClassifier && len(providers.ListProviders()) > 0 {
		routerOpts = append(routerOpts, agent.WithLLMClassifier(
			agent.NewLLMClassifier(providers, cfg.LLM.ClassifierTimeout, cfg.LLM.MaxHistoryChars),
		))
	}
	agentRouter := agent.NewRouter(agent.Handlers{
		Petrophysics: petrophysics.New(),
		Maintenance:  maintenance.New(),
		Renewable:    renewable.New(store),
		EDIcraft:     edicraft.New(wells, store, cfg.Catalog.QueryTimeout),
	}, guard, sessionRepo, routerOpts...)

	// Services
	loader := history.NewLoader(messageRepo, cfg.Agent.HistoryLimit)
	collectionService := service.NewCollectionService(collectionRepo, collectionCache)
	sessionService := service.NewSessionService(sessionRepo, messageRepo, collectionService, loader, thoughtStore)
	chatOpts := []service.ChatOption{
		service.WithNotifier(streamer),
		service.WithHistoryLimit(cfg.Agent.HistoryLimit),
		service.WithTurnTimeout(cfg.Agent.RequestTimeout),
	}
	if len(providers.ListProviders()) > 0 {
		chatOpts = append(chatOpts, service.WithTitleProvider(providers, cfg.LLM.TitleTimeout))
	}
	chatService := service.NewChatService(agentRouter, sessionRepo, messageRepo, loader, chatOpts...)
	artifactService := service.NewArtifactService(store, sessionRepo)

	router := api.NewRouter(cfg, api.Dependencies{
		JWT:         security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.Issuer),
		Limiter:     redis.NewRateLimiter(redisClient, cfg.Security.RateLimit.RequestsPerMinute, cfg.Security.RateLimit.Burst),
		Chat:        chatService,
		Sessions:    sessionService,
		Collections: collectionService,
		Artifacts:   artifactService,
		Cache:       collectionService,
		Providers:   providers,
		Readiness: []handler.ReadinessCheck{
			{Name: "database", Check: db.Ping},
			{Name: "redis", Check: redisClient.Ping},
		},
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		chatService.Wait()
		if err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// newCatalogResolver resolves the configured well catalog source
func newCatalogResolver(cfg *config.Config, catalogs *catalog.Router) *catalog.Resolver {
	c := catalog.Config{
		DSN:        cfg.Catalog.DSN,
		Table:      cfg.Catalog.Table,
		MaxResults: cfg.Catalog.MaxResults,
		Timeout:    cfg.Catalog.QueryTimeout,
	}
	switch cfg.Catalog.Driver {
	case "postgres":
		if c.DSN == "" {
			c.DSN = cfg.Database.DSN()
		}
	case "mongo":
		if c.DSN == "" {
			c.DSN = cfg.Mongo.URI
		}
		c.Database = cfg.Mongo.Database
	}
	return catalog.NewResolver(catalogs, "wells", cfg.Catalog.Driver, c)
}

// newLLMRouter registers every provider that has credentials configured
func newLLMRouter(cfg *config.Config) *llm.Router {
	providers := llm.NewRouter(cfg.LLM.DefaultProvider)

	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.LLM.DefaultProvider)

	if cfg.LLM.Ollama.Host != "" {
		log.Info().Str("host", cfg.LLM.Ollama.Host).Msg("Registering Ollama provider")
		providers.RegisterProvider(langchain.NewOllama(cfg.LLM.Ollama.Host, cfg.LLM.Ollama.DefaultModel))
	}
	if cfg.LLM.OpenAI.APIKey != "" {
		providers.RegisterProvider(openai.NewProvider(cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.Model))
	}
	if cfg.LLM.DeepSeek.APIKey != "" {
		providers.RegisterProvider(openai.NewDeepSeekProvider(cfg.LLM.DeepSeek.APIKey, cfg.LLM.DeepSeek.BaseURL, cfg.LLM.DeepSeek.Model))
	}
	if cfg.LLM.Anthropic.APIKey != "" {
		providers.RegisterProvider(langchain.NewAnthropic(cfg.LLM.Anthropic.APIKey, cfg.LLM.Anthropic.Model))
	}
	if cfg.LLM.Bedrock.Enabled {
		providers.RegisterProvider(langchain.NewBedrock(true, cfg.LLM.Bedrock.Model))
	}
	if cfg.LLM.Gemini.APIKey != "" {
		log.Info().Int("key_len", len(cfg.LLM.Gemini.APIKey)).Msg("Registering Gemini provider")
		providers.RegisterProvider(gemini.NewProvider(cfg.LLM.Gemini))
	} else {
		log.Warn().Msg("Gemini API Key is empty, skipping registration")
	}

	return providers
}
