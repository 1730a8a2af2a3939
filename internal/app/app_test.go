package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/i474232898/rainfall-data/internal/config"
	"github.com/i474232898/rainfall-data/internal/store"
	"github.com/i474232898/rainfall-data/internal/weather"
)

func testConfig(t *testing.T, backend string) *config.AppConfig {
	t.Helper()
	return &config.AppConfig{
		OpenMeteoURL:     "http://127.0.0.1:1/v1/forecast",
		HTTPTimeout:      time.Second,
		RetryMax:         1,
		RetryBackoff:     time.Millisecond,
		Location:         time.UTC,
		Timezone:         "UTC",
		DailySource:      weather.DailyFromAPI,
		CacheBackend:     backend,
		CacheTTL:         time.Hour,
		CacheMaxEntries:  8,
		CachePath:        filepath.Join(t.TempDir(), "cache", "http_cache.db"),
		DefaultLatitude:  38.9282,
		DefaultLongitude: -76.9158,
	}
}

func TestNewMemoryBackend(t *testing.T) {
	a, err := New(context.Background(), testConfig(t, config.CacheMemory))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	if _, ok := a.Cache.(*store.MemoryStore); !ok {
		t.Fatalf("expected memory cache, got %T", a.Cache)
	}
	if a.Geocoder != nil {
		t.Error("expected geocoder to be disabled without an API key")
	}
	if a.Service.Zone() != time.UTC {
		t.Errorf("unexpected zone %s", a.Service.Zone())
	}
	if loc := a.DefaultLocation(); loc.Latitude != 38.9282 || loc.Longitude != -76.9158 {
		t.Errorf("unexpected default location %+v", loc)
	}
}

func TestNewSQLiteBackend(t *testing.T) {
	cfg := testConfig(t, config.CacheSQLite)
	cfg.GeocoderAPIKey = "key"

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	if _, ok := a.Cache.(*store.SQLiteStore); !ok {
		t.Fatalf("expected sqlite cache, got %T", a.Cache)
	}
	if a.Geocoder == nil {
		t.Error("expected geocoder with an API key")
	}
	if err := a.Cache.Set(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if n, err := a.Cache.Purge(context.Background()); err != nil || n != 0 {
		t.Fatalf("expected nothing purged, got %d, %v", n, err)
	}
}
