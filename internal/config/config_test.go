package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "STORE_DRIVER", "MONGO_URI", "MONGO_DB", "JWT_SECRET", "JWT_EXPIRY",
	"CATALOG_TTL", "CATALOG_SEED_FILE", "REDIS_ADDR", "MQTT_BROKER", "MQTT_TOPIC",
	"MQTT_CLIENT_ID", "TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID", "NOTIFY_TIMEOUT",
	"LOG_LEVEL", "LOG_FORMAT", "RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW_SECONDS",
}

// clearEnv blanks every key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Equal(t, "factory_log", cfg.MongoDB)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 2*time.Minute, cfg.CatalogTTL)
	assert.Equal(t, 5*time.Second, cfg.NotifyTimeout)
	assert.Equal(t, 100, cfg.RateLimitRequests)
	assert.Equal(t, 60, cfg.RateLimitWindowSeconds)
	assert.Equal(t, "factory/notifications", cfg.MQTTTopic)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CATALOG_TTL", "30s")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("TELEGRAM_TOKEN", "abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 30*time.Second, cfg.CatalogTTL)
	assert.Equal(t, 5, cfg.RateLimitRequests)
	assert.Equal(t, "-1001", cfg.TelegramChatID)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("PORT")
	os.Unsetenv("MONGO_DB")
	t.Cleanup(func() {
		os.Unsetenv("PORT")
		os.Unsetenv("MONGO_DB")
	})
	t.Setenv("LOG_LEVEL", "debug")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=7070\nMONGO_DB=plant2\nLOG_LEVEL=error\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "plant2", cfg.MongoDB)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"STORE_DRIVER", "sqlite"},
		{"JWT_EXPIRY", "tomorrow"},
		{"CATALOG_TTL", "-1s"},
		{"NOTIFY_TIMEOUT", "0s"},
		{"RATE_LIMIT_REQUESTS", "many"},
		{"RATE_LIMIT_WINDOW_SECONDS", "0"},
		{"TELEGRAM_TOKEN", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
