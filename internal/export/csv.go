// Package export renders report tables as CSV files and chart series.
package export

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/i474232898/rainfall-data/internal/weather"
)

// File names offered for download.
const (
	HourlyFilename = "hourly_data.csv"
	DailyFilename  = "daily_data.csv"
)

// TimestampLayout is how hourly instants are written: local time in the
// reference zone with its offset.
const TimestampLayout = "2006-01-02 15:04:05-07:00"

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

// HourlyColumns returns the hourly header for the requested fields.
func HourlyColumns(fields []weather.Field) []string {
	cols := []string{"date"}
	for _, f := range weather.AllFields {
		if contains(fields, f) {
			cols = append(cols, string(f))
		}
	}
	return cols
}

// DailyColumns returns the daily header for the requested fields.
func DailyColumns(fields []weather.Field) []string {
	cols := []string{"date"}
	for _, rule := range weather.DailyRules {
		if contains(fields, rule.Field) {
			cols = append(cols, rule.Column)
		}
	}
	return cols
}

// WriteHourlyCSV writes one header row and one row per hourly record.
func WriteHourlyCSV(w io.Writer, report weather.Report, zone *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(HourlyColumns(report.Fields)); err != nil {
		return err
	}
	for _, r := range report.Hourly {
		row := []string{r.Timestamp.In(zone).Format(TimestampLayout)}
		for _, f := range weather.AllFields {
			if contains(report.Fields, f) {
				row = append(row, formatFloat(r.Value(f)))
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDailyCSV writes one header row and one row per daily record.
func WriteDailyCSV(w io.Writer, report weather.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DailyColumns(report.Fields)); err != nil {
		return err
	}
	for _, r := range report.Daily {
		row := []string{r.Date.String()}
		for _, rule := range weather.DailyRules {
			if contains(report.Fields, rule.Field) {
				row = append(row, formatOptional(DailyValue(r, rule.Column)))
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DailyValue returns the value of a daily column by name.
func DailyValue(r weather.DailyRecord, column string) *float64 {
	switch column {
	case "precipitation_sum":
		return r.PrecipitationSum
	case "rain_sum":
		return r.RainSum
	case "average_wind_speed":
		return r.AverageWindSpeed
	case "average_wind_direction":
		return r.AverageWindDirection
	default:
		return nil
	}
}

func contains(fields []weather.Field, f weather.Field) bool {
	for _, x := range fields {
		if x == f {
			return true
		}
	}
	return false
}
