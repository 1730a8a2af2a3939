package weather

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Field is an hourly variable requested from the weather API.
type Field string

const (
	FieldPrecipitation Field = "precipitation"
	FieldRain          Field = "rain"
	FieldWindSpeed     Field = "wind_speed_10m"
	FieldWindDirection Field = "wind_direction_10m"
)

// AllFields lists every supported hourly field in column order.
var AllFields = []Field{FieldPrecipitation, FieldRain, FieldWindSpeed, FieldWindDirection}

// ParseField validates a field name.
func ParseField(s string) (Field, error) {
	for _, f := range AllFields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown hourly field %q", s)
}

// DailyField is a daily-resolution variable the API can total for us.
type DailyField string

const (
	DailyPrecipitationSum DailyField = "precipitation_sum"
	DailyRainSum          DailyField = "rain_sum"
)

// AllDailyFields lists the API daily totals we know how to merge.
var AllDailyFields = []DailyField{DailyPrecipitationSum, DailyRainSum}

// Location represents the point we fetch data for. Coordinates are passed
// through to the API as-is.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
}

// Key returns a canonical string key for this location.
func (l Location) Key() string {
	return fmt.Sprintf("%.4f,%.4f", l.Latitude, l.Longitude)
}

// Date is a calendar day with no time-of-day or zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in zone.
func DateOf(t time.Time, zone *time.Location) Date {
	y, m, d := t.In(zone).Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return DateOf(t, time.UTC), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// In returns local midnight of d in zone.
func (d Date) In(zone *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, zone)
}

// Before reports whether d is an earlier day than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// HourlyRecord is one row of the hourly table. Values the API did not
// supply (or that were not requested) are NaN.
type HourlyRecord struct {
	Timestamp     time.Time
	Precipitation float64
	Rain          float64
	WindSpeed     float64
	WindDirection float64
}

func newHourlyRecord(ts time.Time) HourlyRecord {
	nan := math.NaN()
	return HourlyRecord{Timestamp: ts, Precipitation: nan, Rain: nan, WindSpeed: nan, WindDirection: nan}
}

// Value returns the value of f for this record.
func (r HourlyRecord) Value(f Field) float64 {
	switch f {
	case FieldPrecipitation:
		return r.Precipitation
	case FieldRain:
		return r.Rain
	case FieldWindSpeed:
		return r.WindSpeed
	case FieldWindDirection:
		return r.WindDirection
	default:
		return math.NaN()
	}
}

func (r *HourlyRecord) set(f Field, v float64) {
	switch f {
	case FieldPrecipitation:
		r.Precipitation = v
	case FieldRain:
		r.Rain = v
	case FieldWindSpeed:
		r.WindSpeed = v
	case FieldWindDirection:
		r.WindDirection = v
	}
}

func (r HourlyRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Timestamp     time.Time `json:"date"`
		Precipitation *float64  `json:"precipitation"`
		Rain          *float64  `json:"rain"`
		WindSpeed     *float64  `json:"wind_speed_10m"`
		WindDirection *float64  `json:"wind_direction_10m"`
	}{
		Timestamp:     r.Timestamp,
		Precipitation: Optional(r.Precipitation),
		Rain:          Optional(r.Rain),
		WindSpeed:     Optional(r.WindSpeed),
		WindDirection: Optional(r.WindDirection),
	})
}

// DailyRecord is one row of the daily table. A nil field means no data for
// that day, which is not the same as zero.
type DailyRecord struct {
	Date                 Date     `json:"date"`
	PrecipitationSum     *float64 `json:"precipitation_sum"`
	RainSum              *float64 `json:"rain_sum"`
	AverageWindSpeed     *float64 `json:"average_wind_speed"`
	AverageWindDirection *float64 `json:"average_wind_direction"`
}

// DailyTotal is a daily row supplied directly by the API.
type DailyTotal struct {
	Date             Date
	PrecipitationSum *float64
	RainSum          *float64
}

// Optional converts NaN to nil.
func Optional(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// Query describes one user request.
type Query struct {
	Location Location
	Start    Date
	End      Date
	Fields   []Field
	Daily    []DailyField
}

// Report holds the two tables produced for one request.
type Report struct {
	Location Location       `json:"location"`
	Start    Date           `json:"start"`
	End      Date           `json:"end"`
	Timezone string         `json:"timezone"`
	Fields   []Field        `json:"fields"`
	Hourly   []HourlyRecord `json:"hourly"`
	Daily    []DailyRecord  `json:"daily"`
}
