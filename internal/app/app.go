// Package app assembles the rainfall pipeline from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/i474232898/rainfall-data/internal/config"
	"github.com/i474232898/rainfall-data/internal/store"
	"github.com/i474232898/rainfall-data/internal/weather"
	"github.com/i474232898/rainfall-data/internal/weather/providers"
)

// Cache is a response cache that can also be purged and closed.
type Cache interface {
	providers.ResponseCache
	Purge(ctx context.Context) (int, error)
	Close() error
}

// App holds the wired collaborators shared by the server and the CLI.
type App struct {
	Config   *config.AppConfig
	Cache    Cache
	Provider *providers.OpenMeteoProvider
	Service  *weather.Service
	Geocoder *providers.GoogleGeocoder
}

// New builds the cache backend, the Open-Meteo provider and the service.
func New(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	cache, err := OpenCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Shared HTTP client for outbound API calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	provider := providers.NewOpenMeteoProvider(httpClient, cfg.OpenMeteoURL, providers.BackoffConfig{
		MaxRetries:      cfg.RetryMax,
		InitialInterval: cfg.RetryBackoff,
		MaxInterval:     cfg.RetryMaxBackoff,
	}, cache)

	a := &App{
		Config:   cfg,
		Cache:    cache,
		Provider: provider,
		Service:  weather.NewService(provider, cfg.Location, cfg.DailySource),
	}
	if cfg.GeocoderAPIKey != "" {
		a.Geocoder = providers.NewGoogleGeocoder(cfg.GeocoderAPIKey)
	}
	return a, nil
}

// OpenCache opens the configured response cache backend.
func OpenCache(ctx context.Context, cfg *config.AppConfig) (Cache, error) {
	switch cfg.CacheBackend {
	case config.CacheSQLite:
		s, err := store.OpenSQLite(cfg.CachePath, cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("open sqlite cache: %w", err)
		}
		slog.Debug("using sqlite response cache", "path", cfg.CachePath)
		return s, nil
	case config.CacheRedis:
		s, err := store.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		slog.Debug("using redis response cache", "addr", cfg.RedisAddr)
		return s, nil
	default:
		return store.NewMemoryStore(cfg.CacheMaxEntries, cfg.CacheTTL), nil
	}
}

// DefaultLocation is the location used when a request names none.
func (a *App) DefaultLocation() weather.Location {
	return weather.Location{
		Latitude:  a.Config.DefaultLatitude,
		Longitude: a.Config.DefaultLongitude,
	}
}

// Close releases the cache backend.
func (a *App) Close() error {
	if a.Cache == nil {
		return nil
	}
	return a.Cache.Close()
}
