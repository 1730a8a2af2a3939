package export

import (
	"time"

	"github.com/i474232898/rainfall-data/internal/weather"
)

// Chart is line-chart data: a shared x axis and one y series per column.
// Missing points are null so the chart shows a gap rather than a zero.
type Chart struct {
	Title  string                `json:"title"`
	Index  []string              `json:"index"`
	Series map[string][]*float64 `json:"series"`
}

// HourlyChart builds the hourly line chart keyed by timestamp.
func HourlyChart(report weather.Report, zone *time.Location) Chart {
	cols := HourlyColumns(report.Fields)[1:]
	c := Chart{
		Title:  "Hourly Data",
		Index:  make([]string, len(report.Hourly)),
		Series: make(map[string][]*float64, len(cols)),
	}
	for _, col := range cols {
		c.Series[col] = make([]*float64, len(report.Hourly))
	}
	for i, r := range report.Hourly {
		c.Index[i] = r.Timestamp.In(zone).Format(time.RFC3339)
		for _, col := range cols {
			c.Series[col][i] = weather.Optional(r.Value(weather.Field(col)))
		}
	}
	return c
}

// DailyChart builds the daily line chart keyed by date.
func DailyChart(report weather.Report) Chart {
	cols := DailyColumns(report.Fields)[1:]
	c := Chart{
		Title:  "Daily Data",
		Index:  make([]string, len(report.Daily)),
		Series: make(map[string][]*float64, len(cols)),
	}
	for _, col := range cols {
		c.Series[col] = make([]*float64, len(report.Daily))
	}
	for i, r := range report.Daily {
		c.Index[i] = r.Date.String()
		for _, col := range cols {
			c.Series[col][i] = DailyValue(r, col)
		}
	}
	return c
}
