package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PROJECT_ROOT", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api", cfg.API.BaseURL)
	assert.Equal(t, "ws://localhost:8081/ws", cfg.Transport.URL)
	assert.Equal(t, 3*time.Second, cfg.Transport.ReconnectDelay)
	assert.Equal(t, 50, cfg.History.Limit)
	assert.False(t, cfg.History.Dedupe)
	assert.Empty(t, cfg.Redis.Address)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxFileSize)
	assert.True(t, len(cfg.Log.File) > 0)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PROJECT_ROOT", t.TempDir())
	t.Setenv("API_BASE_URL", "https://chat.example.com/api/")
	t.Setenv("WS_URL", "wss://chat.example.com/ws")
	t.Setenv("RECONNECT_DELAY", "500ms")
	t.Setenv("HISTORY_LIMIT", "20")
	t.Setenv("HISTORY_DEDUPE", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE", "/tmp/chat.log")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, "wss://chat.example.com/ws", cfg.Transport.URL)
	assert.Equal(t, 500*time.Millisecond, cfg.Transport.ReconnectDelay)
	assert.Equal(t, 20, cfg.History.Limit)
	assert.True(t, cfg.History.Dedupe)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	assert.Equal(t, "/tmp/chat.log", cfg.Log.File)
}

func TestInvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("PROJECT_ROOT", t.TempDir())
	t.Setenv("HISTORY_LIMIT", "many")
	t.Setenv("RECONNECT_DELAY", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.History.Limit)
	assert.Equal(t, 3*time.Second, cfg.Transport.ReconnectDelay)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "ftp://nope"
	cfg.Transport.URL = "http://not-a-websocket"
	cfg.Transport.PingPeriod = time.Minute
	cfg.History.Limit = 0
	cfg.Log.Level = "LOUD"

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "API_BASE_URL")
	assert.Contains(t, msg, "WS_URL")
	assert.Contains(t, msg, "shorter than pong wait")
	assert.Contains(t, msg, "history limit")
	assert.Contains(t, msg, "LOG_LEVEL")
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
