// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the API server.
type Config struct {
	Port string

	StoreDriver string
	MongoURI    string
	MongoDB     string

	JWTSecret string
	JWTExpiry time.Duration

	CatalogTTL      time.Duration
	CatalogSeedFile string
	RedisAddr       string

	MQTTBroker     string
	MQTTTopic      string
	MQTTClientID   string
	TelegramToken  string
	TelegramChatID string
	NotifyTimeout  time.Duration

	LogLevel  string
	LogFormat string

	RateLimitRequests      int
	RateLimitWindowSeconds int
}

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Load reads files (default ".env") into the environment without overriding
// variables already set, then builds the config. Missing files are ignored.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		StoreDriver:     getEnv("STORE_DRIVER", DriverMongo),
		MongoURI:        os.Getenv("MONGO_URI"),
		MongoDB:         getEnv("MONGO_DB", "factory_log"),
		JWTSecret:       getEnv("JWT_SECRET", "default-secret-key-change-in-production"),
		CatalogSeedFile: os.Getenv("CATALOG_SEED_FILE"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		MQTTBroker:      os.Getenv("MQTT_BROKER"),
		MQTTTopic:       getEnv("MQTT_TOPIC", "factory/notifications"),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", "factory-log"),
		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:  os.Getenv("TELEGRAM_CHAT_ID"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.JWTExpiry, err = getDuration("JWT_EXPIRY", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.CatalogTTL, err = getDuration("CATALOG_TTL", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.NotifyTimeout, err = getDuration("NOTIFY_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.RateLimitRequests, err = getInt("RATE_LIMIT_REQUESTS", 100); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindowSeconds, err = getInt("RATE_LIMIT_WINDOW_SECONDS", 60); err != nil {
		return nil, err
	}

	if cfg.StoreDriver != DriverMongo && cfg.StoreDriver != DriverMemory {
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverMongo, DriverMemory, cfg.StoreDriver)
	}
	if (cfg.TelegramToken == "") != (cfg.TelegramChatID == "") {
		return nil, fmt.Errorf("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: invalid positive integer %q", key, v)
	}
	return n, nil
}
