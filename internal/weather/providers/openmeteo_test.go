package providers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/rainfall-data/internal/store"
	"github.com/i474232898/rainfall-data/internal/weather"
)

const sampleResponse = `{
  "latitude": 38.93,
  "longitude": -76.92,
  "utc_offset_seconds": -14400,
  "timezone": "America/New_York",
  "hourly": {
    "time": [1714536000, 1714539600, 1714543200],
    "precipitation": [0.0, 0.4, null],
    "rain": [0.0, 0.3, 0.1],
    "wind_speed_10m": [3.2, 4.1, 5.0],
    "wind_direction_10m": [350, 10, 0]
  },
  "daily": {
    "time": [1714536000],
    "precipitation_sum": [0.7],
    "rain_sum": [0.4]
  }
}`

func fastBackoff() BackoffConfig {
	return BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func testQuery() weather.Query {
	return weather.Query{
		Location: weather.Location{Latitude: 38.9282, Longitude: -76.9158},
		Start:    weather.Date{Year: 2024, Month: time.May, Day: 1},
		End:      weather.Date{Year: 2024, Month: time.May, Day: 1},
		Fields:   weather.AllFields,
		Daily:    weather.AllDailyFields,
	}
}

func TestOpenMeteoFetchDecodesPayload(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), srv.URL, fastBackoff(), nil)
	payload, err := p.Fetch(context.Background(), testQuery(), "America/New_York")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"latitude=38.9282",
		"longitude=-76.9158",
		"hourly=precipitation%2Crain%2Cwind_speed_10m%2Cwind_direction_10m",
		"daily=precipitation_sum%2Crain_sum",
		"timezone=America%2FNew_York",
		"start_date=2024-05-01",
		"end_date=2024-05-01",
		"timeformat=unixtime",
	} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}

	if len(payload.Hourly.Times) != 3 {
		t.Fatalf("expected 3 hourly times, got %d", len(payload.Hourly.Times))
	}
	if !payload.Hourly.Times[0].Equal(time.Unix(1714536000, 0)) {
		t.Errorf("unexpected first time %s", payload.Hourly.Times[0])
	}
	if got := payload.Hourly.Values["precipitation"]; !math.IsNaN(got[2]) || got[1] != 0.4 {
		t.Errorf("unexpected precipitation values %v", got)
	}
	if payload.Daily == nil || payload.Daily.Values["rain_sum"][0] != 0.4 {
		t.Fatalf("expected daily block with rain_sum, got %+v", payload.Daily)
	}
}

func TestOpenMeteoFetchUsesCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	cache := store.NewMemoryStore(10, time.Hour)
	p := NewOpenMeteoProvider(srv.Client(), srv.URL, fastBackoff(), cache)

	for i := 0; i < 3; i++ {
		if _, err := p.Fetch(context.Background(), testQuery(), "America/New_York"); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}

	// A different zone is a different request.
	if _, err := p.Fetch(context.Background(), testQuery(), "UTC"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", got)
	}
}

func TestOpenMeteoFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), srv.URL, fastBackoff(), nil)
	if _, err := p.Fetch(context.Background(), testQuery(), "UTC"); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestOpenMeteoFetchDoesNotRetryBadRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":true,"reason":"Parameter 'start_date' is out of allowed range"}`))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), srv.URL, fastBackoff(), nil)
	_, err := p.Fetch(context.Background(), testQuery(), "UTC")
	if !errors.Is(err, errBadRequest) {
		t.Fatalf("expected errBadRequest, got %v", err)
	}
	if !strings.Contains(err.Error(), "out of allowed range") {
		t.Errorf("expected API reason in error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestOpenMeteoBadRequestsKeepBreakerClosed(t *testing.T) {
	var reject atomic.Bool
	reject.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reject.Load() {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":true,"reason":"Parameter 'start_date' is out of allowed range"}`))
			return
		}
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), srv.URL, fastBackoff(), nil)
	for i := 0; i < 10; i++ {
		if _, err := p.Fetch(context.Background(), testQuery(), "UTC"); !errors.Is(err, errBadRequest) {
			t.Fatalf("request %d: expected errBadRequest, got %v", i, err)
		}
	}

	reject.Store(false)
	if _, err := p.Fetch(context.Background(), testQuery(), "UTC"); err != nil {
		t.Fatalf("expected valid request to succeed after rejected ones, got %v", err)
	}
}

func TestBreakerSuccess(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"bad request", permanentError{errBadRequest}, true},
		{"rate limited", errRateLimited, false},
		{"server error", errServerError, false},
		{"network", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := breakerSuccess(tt.err); got != tt.want {
				t.Fatalf("breakerSuccess(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestOpenMeteoFetchRejectsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hourly": {"time": ["not-a-number"]}}`))
	}))
	defer srv.Close()

	cache := store.NewMemoryStore(10, time.Hour)
	p := NewOpenMeteoProvider(srv.Client(), srv.URL, fastBackoff(), cache)
	if _, err := p.Fetch(context.Background(), testQuery(), "UTC"); err == nil {
		t.Fatal("expected decode error")
	}
	if cache.Len() != 0 {
		t.Fatal("expected malformed body not to be cached")
	}
}

func TestGoogleGeocoderResolve(t *testing.T) {
	g := NewGoogleGeocoder("key")
	var got geocoder.Address
	g.lookup = func(a geocoder.Address) (geocoder.Location, error) {
		got = a
		return geocoder.Location{Latitude: 38.9, Longitude: -76.9}, nil
	}

	loc, err := g.Resolve(context.Background(), weather.Location{City: "College Park", Country: "US"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.City != "College Park" || got.Country != "US" {
		t.Errorf("unexpected address %+v", got)
	}
	if loc.Latitude != 38.9 || loc.Longitude != -76.9 {
		t.Errorf("unexpected coordinates %+v", loc)
	}

	if _, err := NewGoogleGeocoder("").Resolve(context.Background(), loc); !errors.Is(err, ErrGeocoderDisabled) {
		t.Fatalf("expected ErrGeocoderDisabled, got %v", err)
	}
}

func TestGoogleGeocoderResolveHonorsCancel(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	g := NewGoogleGeocoder("key")
	g.lookup = func(geocoder.Address) (geocoder.Location, error) {
		<-release
		return geocoder.Location{Latitude: 1, Longitude: 2}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := g.Resolve(ctx, weather.Location{City: "Nowhere"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected Resolve to return on cancel, took %s", elapsed)
	}
}
