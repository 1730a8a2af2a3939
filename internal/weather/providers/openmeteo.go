package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/rainfall-data/internal/store"
	"github.com/i474232898/rainfall-data/internal/weather"
	"github.com/sony/gobreaker"
)

// DefaultOpenMeteoURL is the forecast endpoint; it serves past days too.
const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

// ResponseCache stores raw API responses by request URL.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, body []byte) error
}

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	cache   ResponseCache
}

// NewOpenMeteoProvider builds a provider. baseURL may be empty for the public
// endpoint; cache may be nil to disable caching.
func NewOpenMeteoProvider(client *http.Client, baseURL string, backoff BackoffConfig, cache ResponseCache) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoURL
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         "openmeteo",
		MaxRequests:  5,
		Interval:     1 * time.Minute,
		Timeout:      2 * time.Minute,
		IsSuccessful: breakerSuccess,
	})

	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: backoff,
		},
		circuit: cb,
		cache:   cache,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// requestURL builds the query the way the API expects: comma separated
// variable lists and unix timestamps so instants are unambiguous.
func (p *OpenMeteoProvider) requestURL(q weather.Query, timezone string) string {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(q.Location.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(q.Location.Longitude, 'f', -1, 64))
	values.Set("hourly", joinNames(q.Fields))
	if len(q.Daily) > 0 {
		values.Set("daily", joinNames(q.Daily))
	}
	values.Set("timezone", timezone)
	values.Set("start_date", q.Start.String())
	values.Set("end_date", q.End.String())
	values.Set("timeformat", "unixtime")

	return fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
}

func joinNames[T ~string](names []T) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ",")
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, q weather.Query, timezone string) (weather.Payload, error) {
	u := p.requestURL(q, timezone)

	body, cached := p.cached(ctx, u)
	if !cached {
		buildRequest := func() (*http.Request, error) {
			return http.NewRequest(http.MethodGet, u, nil)
		}

		resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
		if err != nil {
			return weather.Payload{}, err
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return weather.Payload{}, fmt.Errorf("read response: %w", err)
		}
	}

	payload, err := decodeOpenMeteo(body, q)
	if err != nil {
		return weather.Payload{}, err
	}

	if !cached && p.cache != nil {
		if err := p.cache.Set(ctx, u, body); err != nil {
			slog.Warn("cache write failed", "provider", p.name, "error", err)
		}
	}
	return payload, nil
}

func (p *OpenMeteoProvider) cached(ctx context.Context, key string) ([]byte, bool) {
	if p.cache == nil {
		return nil, false
	}
	body, err := p.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("cache read failed", "provider", p.name, "error", err)
		}
		return nil, false
	}
	slog.Debug("cache hit", "provider", p.name)
	return body, true
}

type openMeteoResponse struct {
	Latitude         float64                    `json:"latitude"`
	Longitude        float64                    `json:"longitude"`
	UTCOffsetSeconds int                        `json:"utc_offset_seconds"`
	Timezone         string                     `json:"timezone"`
	Hourly           map[string]json.RawMessage `json:"hourly"`
	Daily            map[string]json.RawMessage `json:"daily"`
}

func decodeOpenMeteo(body []byte, q weather.Query) (weather.Payload, error) {
	var resp openMeteoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return weather.Payload{}, fmt.Errorf("decode response: %w", err)
	}

	hourlyNames := make([]string, len(q.Fields))
	for i, f := range q.Fields {
		hourlyNames[i] = string(f)
	}
	hourly, err := decodeBlock(resp.Hourly, hourlyNames)
	if err != nil {
		return weather.Payload{}, fmt.Errorf("decode hourly: %w", err)
	}

	payload := weather.Payload{Hourly: hourly}
	if len(q.Daily) > 0 && resp.Daily != nil {
		dailyNames := make([]string, len(q.Daily))
		for i, f := range q.Daily {
			dailyNames[i] = string(f)
		}
		daily, err := decodeBlock(resp.Daily, dailyNames)
		if err != nil {
			return weather.Payload{}, fmt.Errorf("decode daily: %w", err)
		}
		payload.Daily = &daily
	}
	return payload, nil
}

// decodeBlock turns one hourly/daily object into a Series. Variables missing
// from the block are left out so the ingestor reports them.
func decodeBlock(block map[string]json.RawMessage, names []string) (weather.Series, error) {
	s := weather.Series{Values: make(map[string][]float64, len(names))}

	if raw, ok := block["time"]; ok {
		var unix []int64
		if err := json.Unmarshal(raw, &unix); err != nil {
			return weather.Series{}, fmt.Errorf("time: %w", err)
		}
		s.Times = make([]time.Time, len(unix))
		for i, v := range unix {
			s.Times[i] = time.Unix(v, 0).UTC()
		}
	}

	for _, name := range names {
		raw, ok := block[name]
		if !ok {
			continue
		}
		var vals []*float64
		if err := json.Unmarshal(raw, &vals); err != nil {
			return weather.Series{}, fmt.Errorf("%s: %w", name, err)
		}
		s.Values[name] = weather.NaNs(vals)
	}
	return s, nil
}
