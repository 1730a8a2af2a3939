package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/rainfall-data/internal/weather"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
)

type AppConfig struct {
	AppEnv   string
	LogLevel slog.Level
	Port     string

	OpenMeteoURL string
	HTTPTimeout  time.Duration

	// Retry policy for outbound calls.
	RetryMax        int
	RetryBackoff    time.Duration
	RetryMaxBackoff time.Duration

	// Timezone names the zone used for day boundaries and sent to the API.
	Timezone    string
	Location    *time.Location
	DailySource weather.DailySource

	// Response cache.
	CacheBackend       string
	CacheTTL           time.Duration
	CacheMaxEntries    int
	CachePath          string
	CachePurgeInterval time.Duration
	RedisAddr          string
	RedisPassword      string
	RedisDB            int

	GeocoderAPIKey string

	DefaultLatitude  float64
	DefaultLongitude float64
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}
	var err error

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	switch cfg.AppEnv {
	case "dev", "prod":
	default:
		return nil, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	}
	if cfg.LogLevel, err = ParseLogLevel(getenvDefault("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	cfg.Port = getenvDefault("PORT", "8080")

	cfg.OpenMeteoURL = getenvDefault("OPEN_METEO_URL", "https://api.open-meteo.com/v1/forecast")
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "15s"); err != nil {
		return nil, err
	}

	// Mirrors a 5-retry session with a 0.2 backoff factor.
	if cfg.RetryMax, err = getenvInt("RETRY_MAX", 5); err != nil {
		return nil, err
	}
	if cfg.RetryBackoff, err = getenvDuration("RETRY_BACKOFF", "200ms"); err != nil {
		return nil, err
	}
	if cfg.RetryMaxBackoff, err = getenvDuration("RETRY_MAX_BACKOFF", "5s"); err != nil {
		return nil, err
	}

	cfg.Timezone = getenvDefault("TIMEZONE", "America/New_York")
	if strings.EqualFold(cfg.Timezone, "Local") {
		return nil, fmt.Errorf("invalid TIMEZONE %q: use an IANA zone name such as America/New_York", cfg.Timezone)
	}
	cfg.Location, err = time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	if cfg.DailySource, err = weather.ParseDailySource(getenvDefault("DAILY_TOTALS", "api")); err != nil {
		return nil, fmt.Errorf("invalid DAILY_TOTALS: %w", err)
	}

	cfg.CacheBackend = strings.ToLower(getenvDefault("CACHE_BACKEND", CacheMemory))
	switch cfg.CacheBackend {
	case CacheMemory, CacheSQLite, CacheRedis:
	default:
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q (allowed: memory, sqlite, redis)", cfg.CacheBackend)
	}
	if cfg.CacheTTL, err = getenvDuration("CACHE_TTL", "1h"); err != nil {
		return nil, err
	}
	if cfg.CacheMaxEntries, err = getenvInt("CACHE_MAX_ENTRIES", 256); err != nil {
		return nil, err
	}
	cfg.CachePath = getenvDefault("CACHE_PATH", ".cache/http_cache.db")
	if cfg.CachePurgeInterval, err = getenvDuration("CACHE_PURGE_INTERVAL", "15m"); err != nil {
		return nil, err
	}
	cfg.RedisAddr = getenvDefault("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = getenvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	if cfg.DefaultLatitude, err = getenvFloat("DEFAULT_LATITUDE", 38.9282); err != nil {
		return nil, err
	}
	if cfg.DefaultLongitude, err = getenvFloat("DEFAULT_LONGITUDE", -76.9158); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseLogLevel maps a LOG_LEVEL string to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	s := getenvDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
