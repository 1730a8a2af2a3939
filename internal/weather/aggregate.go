package weather

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Policy is how a field's hourly values are folded into one daily value.
type Policy int

const (
	PolicySum Policy = iota
	PolicyMean
	PolicyCircularMean
)

func (p Policy) String() string {
	switch p {
	case PolicySum:
		return "sum"
	case PolicyMean:
		return "mean"
	case PolicyCircularMean:
		return "circular_mean"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Rule maps an hourly field to its daily column.
type Rule struct {
	Field  Field
	Policy Policy
	Column string
}

// DailyRules is the per-field aggregation table, in column order.
var DailyRules = []Rule{
	{Field: FieldPrecipitation, Policy: PolicySum, Column: "precipitation_sum"},
	{Field: FieldRain, Policy: PolicySum, Column: "rain_sum"},
	{Field: FieldWindSpeed, Policy: PolicyMean, Column: "average_wind_speed"},
	{Field: FieldWindDirection, Policy: PolicyCircularMean, Column: "average_wind_direction"},
}

// fold reduces values under p. NaN values are skipped. A sum of nothing is
// zero; a mean of nothing is NaN.
func fold(p Policy, values []float64) float64 {
	switch p {
	case PolicySum:
		var sum float64
		for _, v := range values {
			if !math.IsNaN(v) {
				sum += v
			}
		}
		return sum
	case PolicyMean:
		var sum float64
		var n int
		for _, v := range values {
			if !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 {
			return math.NaN()
		}
		return sum / float64(n)
	case PolicyCircularMean:
		return CircularMean(values)
	default:
		return math.NaN()
	}
}

type dayBucket struct {
	date   Date
	values map[Field][]float64
}

// AggregateDaily groups records by calendar day in zone and folds each
// requested field under its rule. Days without records are not emitted.
func AggregateDaily(records []HourlyRecord, fields []Field, zone *time.Location) ([]DailyRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}

	requested := make(map[Field]bool, len(fields))
	for _, f := range fields {
		requested[f] = true
	}

	buckets := make(map[Date]*dayBucket)
	for _, r := range records {
		day := DateOf(r.Timestamp, zone)
		b, ok := buckets[day]
		if !ok {
			b = &dayBucket{date: day, values: make(map[Field][]float64, len(fields))}
			buckets[day] = b
		}
		for f := range requested {
			b.values[f] = append(b.values[f], r.Value(f))
		}
	}

	days := make([]Date, 0, len(buckets))
	for d := range buckets {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := make([]DailyRecord, 0, len(days))
	for _, d := range days {
		b := buckets[d]
		row := DailyRecord{Date: d}
		for _, rule := range DailyRules {
			if !requested[rule.Field] {
				continue
			}
			if err := row.setColumn(rule.Column, Optional(fold(rule.Policy, b.values[rule.Field]))); err != nil {
				return nil, err
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *DailyRecord) setColumn(column string, v *float64) error {
	switch column {
	case "precipitation_sum":
		r.PrecipitationSum = v
	case "rain_sum":
		r.RainSum = v
	case "average_wind_speed":
		r.AverageWindSpeed = v
	case "average_wind_direction":
		r.AverageWindDirection = v
	default:
		return fmt.Errorf("unknown daily column %q", column)
	}
	return nil
}

// MergeDaily left-joins API daily totals with locally aggregated rows on
// date. Totals win for precipitation and rain; wind columns come from local
// and stay nil for days local does not cover.
func MergeDaily(totals []DailyTotal, local []DailyRecord) ([]DailyRecord, error) {
	right := make(map[Date]DailyRecord, len(local))
	for _, r := range local {
		if _, dup := right[r.Date]; dup {
			return nil, fmt.Errorf("%w: date %s appears twice in hourly aggregates", ErrJoinKeyMismatch, r.Date)
		}
		right[r.Date] = r
	}

	seen := make(map[Date]bool, len(totals))
	out := make([]DailyRecord, 0, len(totals))
	for _, t := range totals {
		if seen[t.Date] {
			return nil, fmt.Errorf("%w: date %s appears twice in daily totals", ErrJoinKeyMismatch, t.Date)
		}
		seen[t.Date] = true

		row := DailyRecord{
			Date:             t.Date,
			PrecipitationSum: t.PrecipitationSum,
			RainSum:          t.RainSum,
		}
		if r, ok := right[t.Date]; ok {
			row.AverageWindSpeed = r.AverageWindSpeed
			row.AverageWindDirection = r.AverageWindDirection
		}
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
