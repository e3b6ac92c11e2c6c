package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"WORKER_COUNT", "COMMAND_TIMEOUT", "RATE_LIMIT_PER_MINUTE", "MAX_AUDIO_BYTES", "POLL_INTERVAL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 60*time.Second, cfg.CommandTimeout)
	assert.Equal(t, 10, cfg.RateLimitPerMinute)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxAudioBytes)
	assert.Equal(t, time.Second, cfg.PollInterval)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("COMMAND_TIMEOUT", "90")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("LANGFUSE_ENABLED", "true")
	t.Setenv("AUTH_MODE", "gateway")

	cfg := Load()

	assert.Equal(t, 8, cfg.WorkerCount)
	assert.Equal(t, 90*time.Second, cfg.CommandTimeout)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.LangfuseEnabled)
	assert.True(t, cfg.IsGatewayMode())
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("WORKER_COUNT", "many")
	t.Setenv("COMMAND_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 60*time.Second, cfg.CommandTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "zero workers", mutate: func(c *Config) { c.WorkerCount = 0 }, wantErr: "WORKER_COUNT"},
		{name: "zero queue", mutate: func(c *Config) { c.QueueSize = 0 }, wantErr: "QUEUE_SIZE"},
		{name: "negative timeout", mutate: func(c *Config) { c.CommandTimeout = -time.Second }, wantErr: "COMMAND_TIMEOUT"},
		{name: "unknown backend", mutate: func(c *Config) { c.GenerationBackend = "magic" }, wantErr: "GENERATION_BACKEND"},
		{name: "llm backend", mutate: func(c *Config) { c.GenerationBackend = BackendLLM }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
