package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/api"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/cache"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/commands"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/config"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/generation"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/intent"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/llm"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/logger"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/mcptools"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/metrics"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/observability"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/prompt"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/store"
)

const (
	sentryFlushTimeout = 2 * time.Second
	storeKindMemory    = "memory"
	storeKindPostgres  = "postgres"
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

// GetVersion returns the current release version
func GetVersion() string {
	return releaseVersion
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "ai-music-assistant@" + releaseVersion,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
			EnableLogs:       true,
			Debug:            !cfg.IsProduction(),
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			log.Printf("Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s, release: %s)", cfg.Environment, releaseVersion)
			defer sentry.Flush(sentryFlushTimeout)
		}
	} else {
		log.Println("⚠️  Sentry not configured (SENTRY_DSN not set)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observability.InitializeLangfuse(ctx, cfg)

	commandStore, storeKind := openStore(cfg)

	c := cache.New(cfg.CacheSweepInterval)
	defer c.Close()
	mustNamespace(c, commands.GenerationNamespace, cfg.CacheTTL, cfg.CacheMaxEntries)
	mustNamespace(c, intent.CacheNamespace, cfg.IntentCacheTTL, cfg.IntentCacheEntries)

	lexicon, err := intent.DefaultLexicon()
	if err != nil {
		log.Fatal("Failed to load intent lexicon: ", err)
	}

	var (
		provider llm.Provider
		enhancer intent.Enhancer
	)
	if cfg.HasLLM() {
		provider, err = llm.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey).
			GetProvider(ctx, cfg.IntentModel, cfg.IntentProvider)
		if err != nil {
			logger.Warn("LLM provider unavailable, enhancement disabled", logger.Fields{"error": err.Error()})
			provider = nil
		} else {
			enhancer = intent.NewLLMEnhancer(provider, cfg.IntentModel)
			log.Printf("✅ LLM enhancement enabled (provider: %s, model: %s)", provider.Name(), cfg.IntentModel)
		}
	}

	backend, err := generation.NewBackend(cfg.GenerationBackend, provider, cfg.IntentModel)
	if err != nil {
		log.Fatal("Failed to create generation backend: ", err)
	}

	cw, err := metrics.NewClient(ctx, cfg.Environment)
	if err != nil {
		logger.Warn("CloudWatch metrics disabled", logger.Fields{"error": err.Error()})
	}
	pipeline := metrics.NewPipeline(metrics.NewSentryMetrics(cfg.SentryDSN != ""), cw)

	manager, err := commands.NewManager(commands.Options{
		Store:     commandStore,
		Cache:     c,
		Stage:     intent.NewStage(intent.NewAnalyzer(lexicon), enhancer, c),
		Backend:   backend,
		Workers:   cfg.WorkerCount,
		QueueSize: cfg.QueueSize,
		Timeout:   cfg.CommandTimeout,
		Metrics:   pipeline,
	})
	if err != nil {
		log.Fatal("Failed to create command manager: ", err)
	}
	manager.Start(ctx)

	go store.NewJanitor(commandStore, cfg.CommandRetention, cfg.JanitorInterval).Run(ctx)

	instructions, err := prompt.NewPromptLoader().GetMCPServerInstructions()
	if err != nil {
		logger.Warn("MCP server instructions unavailable", logger.Fields{"error": err.Error()})
	}
	mcpServer := mcptools.NewServer(mcptools.NewService(manager), GetVersion(), instructions)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.SetupRouter(api.Deps{
		Config:    cfg,
		Commands:  manager,
		Metrics:   pipeline,
		Cache:     c,
		MCP:       mcptools.NewHandler(mcpServer),
		MCPTools:  mcptools.ToolNames(),
		StoreKind: storeKind,
		Version:   GetVersion(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("🚀 Starting server on port %s (backend: %s, store: %s)", cfg.Port, backend.Name(), storeKind)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			sentry.CaptureException(err)
			log.Fatal("Failed to start server: ", err)
		}
	case <-ctx.Done():
		log.Println("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", err, nil)
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Error("Command workers did not drain before the shutdown deadline", err, logger.Fields{
			"running": manager.Running(),
		})
	}
	log.Println("Server stopped")
}

// openStore uses Postgres when DATABASE_URL is set and memory otherwise.
func openStore(cfg *config.Config) (store.CommandStore, string) {
	if cfg.DatabaseURL == "" {
		return store.NewMemoryStore(), storeKindMemory
	}

	db, err := store.Connect(cfg.DatabaseURL)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to connect to database: ", err)
	}
	if err := store.Migrate(db); err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to run migrations: ", err)
	}
	return store.NewGormStore(db), storeKindPostgres
}

func mustNamespace(c *cache.Cache, name string, ttl time.Duration, maxEntries int) {
	if err := c.CreateNamespace(name, ttl, maxEntries); err != nil {
		log.Fatalf("Failed to create cache namespace %s: %v", name, err)
	}
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
	}

	for k, v := range headers {
		if sensitiveKeys[k] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
