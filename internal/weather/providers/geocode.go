package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/rainfall-data/internal/weather"
)

// ErrGeocoderDisabled is returned when no Google API key is configured.
var ErrGeocoderDisabled = errors.New("geocoding requires GEOCODER_API_KEY")

// geocoder.ApiKey is package global.
var geocoderMu sync.Mutex

// GoogleGeocoder resolves a city/country pair to coordinates.
type GoogleGeocoder struct {
	apiKey string
	lookup func(geocoder.Address) (geocoder.Location, error)
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{apiKey: apiKey, lookup: geocoder.Geocoding}
}

// Resolve fills in Latitude and Longitude for loc from its City and Country.
func (g *GoogleGeocoder) Resolve(ctx context.Context, loc weather.Location) (weather.Location, error) {
	if g == nil || g.apiKey == "" {
		return loc, ErrGeocoderDisabled
	}
	if loc.City == "" {
		return loc, fmt.Errorf("city is required for geocoding")
	}
	if err := ctx.Err(); err != nil {
		return loc, err
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	// The library takes no context; an abandoned lookup finishes in the
	// background and releases the lock when it returns.
	done := make(chan result, 1)
	go func() {
		geocoderMu.Lock()
		defer geocoderMu.Unlock()
		geocoder.ApiKey = g.apiKey
		res, err := g.lookup(geocoder.Address{City: loc.City, Country: loc.Country})
		done <- result{loc: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return loc, fmt.Errorf("geocode %s, %s: %w", loc.City, loc.Country, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return loc, fmt.Errorf("geocode %s, %s: %w", loc.City, loc.Country, r.err)
		}
		loc.Latitude = r.loc.Latitude
		loc.Longitude = r.loc.Longitude
		return loc, nil
	}
}
