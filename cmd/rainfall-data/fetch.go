package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/rainfall-data/internal/app"
	"github.com/i474232898/rainfall-data/internal/common"
	"github.com/i474232898/rainfall-data/internal/export"
	"github.com/i474232898/rainfall-data/internal/weather"
)

type fetchOptions struct {
	lat, lon      float64
	hasCoords     bool
	city, country string
	start, end    string
	fields        string
	output        string
	outDir        string
}

func newFetchCmd() *cobra.Command {
	var opts fetchOptions
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and aggregate rainfall data once",
		Example: `  rainfall-data fetch --start 2024-05-01 --end 2024-05-07
  rainfall-data fetch --lat 51.5 --lon -0.12 --fields rain,wind_direction_10m -o json
  rainfall-data fetch --out ./data`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.hasCoords = cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon")
			if cmd.Flags().Changed("lat") != cmd.Flags().Changed("lon") {
				return fmt.Errorf("--lat and --lon must be given together")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.HTTPTimeout*time.Duration(cfg.RetryMax+1))
			defer cancel()
			return runFetch(ctx, a, opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.Float64Var(&opts.lat, "lat", 0, "latitude (default from DEFAULT_LATITUDE)")
	f.Float64Var(&opts.lon, "lon", 0, "longitude (default from DEFAULT_LONGITUDE)")
	f.StringVar(&opts.city, "city", "", "city to geocode instead of coordinates")
	f.StringVar(&opts.country, "country", "", "country of --city")
	f.StringVar(&opts.start, "start", "", "first day, YYYY-MM-DD (default today)")
	f.StringVar(&opts.end, "end", "", "last day, YYYY-MM-DD (default today)")
	f.StringVar(&opts.fields, "fields", "", "comma separated hourly fields (default all)")
	f.StringVarP(&opts.output, "output", "o", "text", "output format (text, json)")
	f.StringVar(&opts.outDir, "out", "", "directory to write hourly and daily CSV files to")
	return cmd
}

func runFetch(ctx context.Context, a *app.App, opts fetchOptions, w io.Writer) error {
	q, err := buildQuery(ctx, a, opts, time.Now())
	if err != nil {
		return err
	}

	report, err := a.Service.Run(ctx, q)
	if err != nil {
		return err
	}

	if opts.outDir != "" {
		if err := writeCSVFiles(opts.outDir, report, a.Service.Zone()); err != nil {
			return err
		}
	}

	switch opts.output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "text", "":
		printReport(w, report)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (allowed: text, json)", opts.output)
	}
}

func buildQuery(ctx context.Context, a *app.App, opts fetchOptions, now time.Time) (weather.Query, error) {
	zone := a.Service.Zone()
	today := weather.DateOf(now, zone)

	q := weather.Query{Start: today, End: today}
	var err error
	if opts.start != "" {
		if q.Start, err = weather.ParseDate(opts.start); err != nil {
			return q, err
		}
	}
	if opts.end != "" {
		if q.End, err = weather.ParseDate(opts.end); err != nil {
			return q, err
		}
	}
	for _, name := range common.SplitList(opts.fields) {
		f, err := weather.ParseField(name)
		if err != nil {
			return q, err
		}
		q.Fields = append(q.Fields, f)
	}

	switch {
	case opts.hasCoords:
		q.Location = weather.Location{Latitude: opts.lat, Longitude: opts.lon, City: opts.city, Country: opts.country}
	case opts.city != "":
		if a.Geocoder == nil {
			return q, fmt.Errorf("--city needs GEOCODER_API_KEY")
		}
		loc, err := a.Geocoder.Resolve(ctx, weather.Location{City: opts.city, Country: opts.country})
		if err != nil {
			return q, err
		}
		q.Location = loc
	default:
		q.Location = a.DefaultLocation()
	}
	return q, nil
}

func writeCSVFiles(dir string, report weather.Report, zone *time.Location) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{export.HourlyFilename, func(w io.Writer) error { return export.WriteHourlyCSV(w, report, zone) }},
		{export.DailyFilename, func(w io.Writer) error { return export.WriteDailyCSV(w, report) }},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		out, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := f.write(out); err != nil {
			out.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("close %s: %w", path, err)
		}
		slog.Info("csv written", "path", path)
	}
	return nil
}

func printReport(w io.Writer, report weather.Report) {
	fmt.Fprintf(w, "Rainfall for %s (%s) %s..%s\n", report.Location.Key(), report.Timezone, report.Start, report.End)
	fmt.Fprintln(w, strings.Repeat("=", 40))
	fmt.Fprintf(w, "Hourly rows: %d\n", len(report.Hourly))
	if len(report.Daily) == 0 {
		fmt.Fprintln(w, "No data for the requested range.")
		return
	}

	cols := export.DailyColumns(report.Fields)
	fmt.Fprintln(w, strings.Join(cols, "\t"))
	for _, r := range report.Daily {
		row := []string{r.Date.String()}
		for _, col := range cols[1:] {
			row = append(row, formatCell(export.DailyValue(r, col)))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
}

func formatCell(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
