package weather

import (
	"context"
)

// Payload is a decoded API response: the hourly block and, when daily
// totals were requested, the daily block.
type Payload struct {
	Hourly Series
	Daily  *Series
}

// Provider abstracts the weather API (Open-Meteo).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, q Query, timezone string) (Payload, error)
}
