package weather

import (
	"fmt"
	"math"
	"time"
)

// Timeline describes a fixed-interval time axis: Start, Start+Interval, ...
// up to but not including End.
type Timeline struct {
	Start    time.Time
	End      time.Time
	Interval time.Duration
}

// Instants expands the timeline.
func (tl Timeline) Instants() ([]time.Time, error) {
	if tl.Interval <= 0 {
		return nil, fmt.Errorf("%w: non-positive interval %s", ErrSchemaMismatch, tl.Interval)
	}
	if !tl.End.After(tl.Start) {
		return nil, nil
	}
	out := make([]time.Time, 0, int(tl.End.Sub(tl.Start)/tl.Interval)+1)
	for ts := tl.Start; ts.Before(tl.End); ts = ts.Add(tl.Interval) {
		out = append(out, ts)
	}
	return out, nil
}

// Series is a decoded block of parallel arrays: one time axis plus one
// value array per variable. Times takes precedence over Timeline.
type Series struct {
	Times    []time.Time
	Timeline *Timeline
	Values   map[string][]float64
}

func (s Series) instants() ([]time.Time, error) {
	if len(s.Times) > 0 || s.Timeline == nil {
		return s.Times, nil
	}
	return s.Timeline.Instants()
}

// column returns the values for name after checking they line up with n
// timestamps.
func (s Series) column(name string, n int) ([]float64, error) {
	vals, ok := s.Values[name]
	if !ok {
		return nil, fmt.Errorf("%w: variable %q missing, want %d values", ErrSchemaMismatch, name, n)
	}
	if len(vals) != n {
		return nil, fmt.Errorf("%w: variable %q has %d values, time axis has %d", ErrSchemaMismatch, name, len(vals), n)
	}
	return vals, nil
}

func checkIncreasing(times []time.Time) error {
	for i := 1; i < len(times); i++ {
		if !times[i].After(times[i-1]) {
			return fmt.Errorf("%w: timestamp %s at row %d does not follow %s", ErrSchemaMismatch,
				times[i].Format(time.RFC3339), i, times[i-1].Format(time.RFC3339))
		}
	}
	return nil
}

// IngestHourly projects s into an ordered hourly table holding the
// requested fields. Timestamps are tagged with zone.
func IngestHourly(s Series, fields []Field, zone *time.Location) ([]HourlyRecord, error) {
	times, err := s.instants()
	if err != nil {
		return nil, err
	}
	n := len(times)

	cols := make(map[Field][]float64, len(fields))
	for _, f := range fields {
		vals, err := s.column(string(f), n)
		if err != nil {
			return nil, err
		}
		cols[f] = vals
	}
	if n == 0 {
		return nil, ErrEmptyRange
	}
	if err := checkIncreasing(times); err != nil {
		return nil, err
	}

	out := make([]HourlyRecord, n)
	for i, ts := range times {
		rec := newHourlyRecord(ts.In(zone))
		for f, vals := range cols {
			rec.set(f, vals[i])
		}
		out[i] = rec
	}
	return out, nil
}

// IngestDaily projects the API daily block into totals keyed by calendar
// day in zone.
func IngestDaily(s Series, fields []DailyField, zone *time.Location) ([]DailyTotal, error) {
	times, err := s.instants()
	if err != nil {
		return nil, err
	}
	n := len(times)

	cols := make(map[DailyField][]float64, len(fields))
	for _, f := range fields {
		vals, err := s.column(string(f), n)
		if err != nil {
			return nil, err
		}
		cols[f] = vals
	}
	if n == 0 {
		return nil, ErrEmptyRange
	}
	if err := checkIncreasing(times); err != nil {
		return nil, err
	}

	out := make([]DailyTotal, n)
	for i, ts := range times {
		row := DailyTotal{Date: DateOf(ts, zone)}
		if vals, ok := cols[DailyPrecipitationSum]; ok {
			row.PrecipitationSum = Optional(vals[i])
		}
		if vals, ok := cols[DailyRainSum]; ok {
			row.RainSum = Optional(vals[i])
		}
		out[i] = row
	}
	return out, nil
}

// NaNs converts nullable API values into floats, mapping null to NaN.
func NaNs(vals []*float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	return out
}
