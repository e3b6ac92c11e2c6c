package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/api/handlers"
	apimiddleware "github.com/Sixshoes/ai-music-assistant-sub000/internal/api/middleware"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/cache"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/config"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/metrics"
)

// Commands is the command manager as seen by the HTTP layer.
type Commands interface {
	handlers.CommandService
	handlers.PipelineStatus
}

// Deps carries everything the router mounts. Metrics, Cache and MCP are optional.
type Deps struct {
	Config    *config.Config
	Commands  Commands
	Metrics   *metrics.Pipeline
	Cache     *cache.Cache
	MCP       http.Handler
	MCPTools  []string
	StoreKind string
	Version   string
}

func SetupRouter(deps Deps) *gin.Engine {
	cfg := deps.Config
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	if deps.Metrics != nil {
		router.Use(apimiddleware.RequestTracking(deps.Metrics))
	} else {
		router.Use(apimiddleware.RequestTracking(nil))
	}

	router.Use(apimiddleware.CORS())

	identity := apimiddleware.NoAuth()
	if cfg.IsGatewayMode() {
		identity = apimiddleware.GatewayAuth()
	}

	healthHandler := handlers.NewHealthHandler(deps.Commands, deps.StoreKind)
	router.GET("/health", healthHandler.HealthCheck)

	metricsHandler := handlers.NewMetricsHandler(deps.Version, deps.Metrics, deps.Commands, deps.Cache)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	if deps.MCP != nil {
		router.GET("/mcp/status", handlers.MCPStatus(deps.MCPTools))
		router.Any(handlers.MCPPath, identity, gin.WrapH(deps.MCP))
	}

	music := handlers.NewMusicHandler(deps.Commands, cfg.MaxAudioBytes, cfg.RequestTimeout).
		WithPollInterval(cfg.PollInterval)
	limiter := apimiddleware.NewRateLimiter(cfg.RateLimitPerMinute)

	api := router.Group("/api", identity)
	{
		// only submissions cost generation time
		api.POST("/text-to-music", limiter.Middleware(), music.TextToMusic)
		api.POST("/audio-to-music", limiter.Middleware(), music.AudioToMusic)

		api.POST("/command-status", music.CommandStatus)
		api.DELETE("/cancel-command/:command_id", music.CancelCommand)
		api.GET("/music-result/:command_id", music.MusicResult)
	}

	return router
}
