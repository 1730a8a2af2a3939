package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DailySource selects where daily precipitation and rain totals come from.
type DailySource string

const (
	// DailyFromAPI fetches the API's daily totals and merges local wind
	// aggregates into them.
	DailyFromAPI DailySource = "api"
	// DailyFromHourly derives every daily column from the hourly table.
	DailyFromHourly DailySource = "hourly"
)

// ParseDailySource validates a DAILY_TOTALS value.
func ParseDailySource(s string) (DailySource, error) {
	switch DailySource(s) {
	case DailyFromAPI, DailyFromHourly:
		return DailySource(s), nil
	default:
		return "", fmt.Errorf("invalid daily source %q (allowed: api, hourly)", s)
	}
}

// Service runs one fetch, ingest and aggregate cycle per request. It holds
// no per-request state, so concurrent calls do not interfere.
type Service struct {
	provider Provider
	zone     *time.Location
	daily    DailySource
}

// NewService creates a new Service.
func NewService(provider Provider, zone *time.Location, daily DailySource) *Service {
	if zone == nil {
		zone = time.UTC
	}
	if daily == "" {
		daily = DailyFromAPI
	}
	return &Service{
		provider: provider,
		zone:     zone,
		daily:    daily,
	}
}

// Zone returns the reference zone used for day boundaries.
func (s *Service) Zone() *time.Location {
	return s.zone
}

// Run fetches data for q and builds the hourly and daily tables.
func (s *Service) Run(ctx context.Context, q Query) (Report, error) {
	if len(q.Fields) == 0 {
		q.Fields = AllFields
	}
	if s.daily == DailyFromAPI && len(q.Daily) == 0 {
		q.Daily = dailyFieldsFor(q.Fields)
	}
	if s.daily == DailyFromHourly {
		q.Daily = nil
	}
	if q.End.Before(q.Start) {
		return Report{}, fmt.Errorf("end date %s is before start date %s", q.End, q.Start)
	}

	report := Report{
		Location: q.Location,
		Start:    q.Start,
		End:      q.End,
		Timezone: s.zone.String(),
		Fields:   q.Fields,
		Hourly:   []HourlyRecord{},
		Daily:    []DailyRecord{},
	}

	if s.provider == nil {
		return Report{}, fmt.Errorf("%w: no provider configured", ErrUpstream)
	}

	logger := slog.With("location", q.Location.Key(), "start", q.Start.String(), "end", q.End.String())
	logger.Debug("fetching weather data", "provider", s.provider.Name(), "fields", q.Fields, "daily", q.Daily)

	payload, err := s.provider.Fetch(ctx, q, s.zone.String())
	if err != nil {
		return Report{}, fmt.Errorf("%w: %s: %v", ErrUpstream, s.provider.Name(), err)
	}

	hourly, err := IngestHourly(payload.Hourly, q.Fields, s.zone)
	if errors.Is(err, ErrEmptyRange) {
		logger.Info("no hourly rows returned")
		return report, nil
	}
	if err != nil {
		return Report{}, fmt.Errorf("ingest hourly: %w", err)
	}

	local, err := AggregateDaily(hourly, q.Fields, s.zone)
	if err != nil {
		return Report{}, fmt.Errorf("aggregate daily: %w", err)
	}

	daily := local
	if len(q.Daily) > 0 {
		daily, err = s.mergeTotals(payload.Daily, q.Daily, local)
		if err != nil {
			return Report{}, err
		}
	}

	report.Hourly = hourly
	report.Daily = daily
	logger.Info("weather data aggregated", "hourly_rows", len(hourly), "daily_rows", len(daily))
	return report, nil
}

func (s *Service) mergeTotals(block *Series, fields []DailyField, local []DailyRecord) ([]DailyRecord, error) {
	if block == nil {
		return nil, fmt.Errorf("ingest daily: %w: daily block missing from response", ErrSchemaMismatch)
	}
	totals, err := IngestDaily(*block, fields, s.zone)
	if errors.Is(err, ErrEmptyRange) {
		slog.Warn("api returned no daily rows; using hourly sums")
		return local, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ingest daily: %w", err)
	}
	merged, err := MergeDaily(totals, local)
	if err != nil {
		return nil, fmt.Errorf("merge daily: %w", err)
	}
	return merged, nil
}

// dailyFieldsFor returns the API daily totals that replace locally summed
// columns for the requested hourly fields.
func dailyFieldsFor(fields []Field) []DailyField {
	var out []DailyField
	for _, f := range fields {
		switch f {
		case FieldPrecipitation:
			out = append(out, DailyPrecipitationSum)
		case FieldRain:
			out = append(out, DailyRainSum)
		}
	}
	return out
}
