package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/cache"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/commands"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/config"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/generation"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/intent"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/mcptools"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/metrics"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/store"
)

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Environment = "test"
	cfg.AuthMode = "none"
	cfg.RateLimitPerMinute = 100
	cfg.RequestTimeout = 5 * time.Second
	cfg.PollInterval = time.Second
	return cfg
}

func newTestRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	lex, err := intent.DefaultLexicon()
	require.NoError(t, err)
	c := cache.New(0)
	require.NoError(t, c.CreateNamespace(commands.GenerationNamespace, time.Hour, 100))
	t.Cleanup(c.Close)

	pipeline := metrics.NewPipeline(nil, nil)
	manager, err := commands.NewManager(commands.Options{
		Store:     store.NewMemoryStore(),
		Cache:     c,
		Stage:     intent.NewStage(intent.NewAnalyzer(lex), nil, nil),
		Backend:   generation.NewAlgorithmicBackend(),
		Workers:   2,
		QueueSize: 8,
		Timeout:   10 * time.Second,
		Metrics:   pipeline,
	})
	require.NoError(t, err)
	manager.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = manager.Shutdown(ctx)
	})

	server := mcptools.NewServer(mcptools.NewService(manager), "test", "")
	return SetupRouter(Deps{
		Config:    cfg,
		Commands:  manager,
		Metrics:   pipeline,
		Cache:     c,
		MCP:       mcptools.NewHandler(server),
		MCPTools:  mcptools.ToolNames(),
		StoreKind: "memory",
		Version:   "test",
	})
}

func request(t *testing.T, router *gin.Engine, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestTextToMusicEndToEnd(t *testing.T) {
	router := newTestRouter(t, testConfig())

	w, resp := request(t, router, http.MethodPost, "/api/text-to-music", map[string]any{
		"text":       "a relaxed jazz tune with piano and bass",
		"parameters": map[string]any{"duration": 12},
	}, nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	id, _ := resp["command_id"].(string)
	require.NotEmpty(t, id)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.EqualValues(t, 1000, resp["poll_interval_ms"])

	require.Eventually(t, func() bool {
		_, st := request(t, router, http.MethodPost, "/api/command-status", map[string]any{"command_id": id}, nil)
		return st["status"] == "completed"
	}, 10*time.Second, 10*time.Millisecond)

	w, result := request(t, router, http.MethodGet, "/api/music-result/"+id, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, result["command_id"])

	data := result["music_data"].(map[string]any)
	assert.NotEmpty(t, data["midi_data"])
	analysis := result["analysis"].(map[string]any)
	assert.Equal(t, "jazz", analysis["genre"])
	assert.NotEmpty(t, result["suggestions"])

	w, cancelResp := request(t, router, http.MethodDelete, "/api/cancel-command/"+id, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Command already finished", cancelResp["message"])
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t, testConfig())

	w, health := request(t, router, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "memory", health["store"])

	w, m := request(t, router, http.MethodGet, "/api/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pipeline := m["pipeline"].(map[string]any)
	assert.Equal(t, generation.BackendAlgorithmic, pipeline["backend"])
	assert.Contains(t, m["cache"], commands.GenerationNamespace)

	w, status := request(t, router, http.MethodGet, "/mcp/status", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, status["tools"], len(mcptools.ToolNames()))
}

func TestGatewayModeRequiresCaller(t *testing.T) {
	cfg := testConfig()
	cfg.AuthMode = "gateway"
	router := newTestRouter(t, cfg)

	w, _ := request(t, router, http.MethodPost, "/api/command-status", map[string]any{"command_id": "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = request(t, router, http.MethodPost, "/api/command-status", map[string]any{"command_id": "x"}, map[string]string{"X-User-ID": "u1"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = request(t, router, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubmissionsAreRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerMinute = 2
	router := newTestRouter(t, cfg)

	body := map[string]any{"text": "short piano loop", "parameters": map[string]any{"duration": 10}}
	for i := 0; i < 2; i++ {
		w, _ := request(t, router, http.MethodPost, "/api/text-to-music", body, nil)
		require.Equal(t, http.StatusAccepted, w.Code)
	}

	w, resp := request(t, router, http.MethodPost, "/api/text-to-music", body, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limited", resp["error_type"])
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// status polling is not limited
	for i := 0; i < 5; i++ {
		w, _ := request(t, router, http.MethodPost, "/api/command-status", map[string]any{"command_id": "missing"}, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
}
