package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/rainfall-data/internal/common"
	"github.com/i474232898/rainfall-data/internal/export"
	"github.com/i474232898/rainfall-data/internal/weather"
	"github.com/i474232898/rainfall-data/internal/weather/providers"
)

var validate = validator.New()

// Geocoder resolves a city/country pair to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, loc weather.Location) (weather.Location, error)
}

// Options carries the optional collaborators of the HTTP API.
type Options struct {
	Geocoder Geocoder
	// Default is used when a request names no location.
	Default weather.Location
	Now     func() time.Time
}

type handler struct {
	service  *weather.Service
	geocoder Geocoder
	fallback weather.Location
	now      func() time.Time
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, opts Options) {
	h := &handler{
		service:  service,
		geocoder: opts.Geocoder,
		fallback: opts.Default,
		now:      opts.Now,
	}
	if h.now == nil {
		h.now = time.Now
	}

	v1 := app.Group("/api/v1")

	v1.Get("/rainfall", func(c *fiber.Ctx) error {
		report, err := h.report(c)
		if err != nil {
			return err
		}
		return c.JSON(report)
	})

	v1.Get("/rainfall/hourly.csv", func(c *fiber.Ctx) error {
		report, err := h.report(c)
		if err != nil {
			return err
		}
		return sendCSV(c, export.HourlyFilename, func(w io.Writer) error {
			return export.WriteHourlyCSV(w, report, h.service.Zone())
		})
	})

	v1.Get("/rainfall/daily.csv", func(c *fiber.Ctx) error {
		report, err := h.report(c)
		if err != nil {
			return err
		}
		return sendCSV(c, export.DailyFilename, func(w io.Writer) error {
			return export.WriteDailyCSV(w, report)
		})
	})

	v1.Get("/rainfall/chart/hourly", func(c *fiber.Ctx) error {
		report, err := h.report(c)
		if err != nil {
			return err
		}
		return c.JSON(export.HourlyChart(report, h.service.Zone()))
	})

	v1.Get("/rainfall/chart/daily", func(c *fiber.Ctx) error {
		report, err := h.report(c)
		if err != nil {
			return err
		}
		return c.JSON(export.DailyChart(report))
	})
}

// rainfallQuery holds query parameters for the rainfall endpoints.
type rainfallQuery struct {
	Latitude  *float64  `validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64  `validate:"omitempty,gte=-180,lte=180"`
	City      string    `validate:"required_with=Country"`
	Country   string
	Start     time.Time `validate:"required"`
	End       time.Time `validate:"required,gtefield=Start"`
	Fields    []string  `validate:"dive,oneof=precipitation rain wind_speed_10m wind_direction_10m"`

	start, end weather.Date
}

func (q *rainfallQuery) bind(c *fiber.Ctx, zone *time.Location, now time.Time) error {
	var err error
	if q.Latitude, err = parseCoordinate(c.Query("lat"), "lat"); err != nil {
		return err
	}
	if q.Longitude, err = parseCoordinate(c.Query("lon"), "lon"); err != nil {
		return err
	}
	if (q.Latitude == nil) != (q.Longitude == nil) {
		return errors.New("lat and lon must be given together")
	}
	q.City = strings.TrimSpace(c.Query("city"))
	q.Country = strings.TrimSpace(c.Query("country"))

	today := weather.DateOf(now, zone)
	if q.start, err = parseDateDefault(c.Query("start"), today); err != nil {
		return err
	}
	if q.end, err = parseDateDefault(c.Query("end"), today); err != nil {
		return err
	}
	q.Start = q.start.In(zone)
	q.End = q.end.In(zone)

	q.Fields = common.SplitList(c.Query("fields"))
	return nil
}

func (q rainfallQuery) fields() []weather.Field {
	out := make([]weather.Field, 0, len(q.Fields))
	for _, name := range q.Fields {
		// Names were checked by the validator.
		f, _ := weather.ParseField(name)
		out = append(out, f)
	}
	return out
}

func parseCoordinate(s, name string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.New("invalid " + name + ": must be a number")
	}
	return &v, nil
}

func parseDateDefault(s string, def weather.Date) (weather.Date, error) {
	if s == "" {
		return def, nil
	}
	return weather.ParseDate(s)
}

func (h *handler) report(c *fiber.Ctx) (weather.Report, error) {
	var req rainfallQuery
	if err := req.bind(c, h.service.Zone(), h.now()); err != nil {
		return weather.Report{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return weather.Report{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	loc, err := h.location(c.UserContext(), req)
	if err != nil {
		return weather.Report{}, err
	}

	report, err := h.service.Run(c.UserContext(), weather.Query{
		Location: loc,
		Start:    req.start,
		End:      req.end,
		Fields:   req.fields(),
	})
	if err != nil {
		return weather.Report{}, toHTTPError(err)
	}
	return report, nil
}

func (h *handler) location(ctx context.Context, req rainfallQuery) (weather.Location, error) {
	if req.Latitude != nil {
		return weather.Location{
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
			City:      req.City,
			Country:   req.Country,
		}, nil
	}
	if req.City == "" {
		return h.fallback, nil
	}
	if h.geocoder == nil {
		return weather.Location{}, fiber.NewError(fiber.StatusBadRequest, providers.ErrGeocoderDisabled.Error())
	}

	loc, err := h.geocoder.Resolve(ctx, weather.Location{City: req.City, Country: req.Country})
	if err != nil {
		if errors.Is(err, providers.ErrGeocoderDisabled) {
			return weather.Location{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		slog.Warn("geocoding failed", "city", req.City, "country", req.Country, "error", err)
		return weather.Location{}, fiber.NewError(fiber.StatusBadGateway, "failed to resolve location")
	}
	return loc, nil
}

// toHTTPError maps pipeline errors onto response codes.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, weather.ErrUpstream), errors.Is(err, weather.ErrSchemaMismatch):
		slog.Warn("weather api failure", "error", err)
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case errors.Is(err, weather.ErrJoinKeyMismatch):
		slog.Error("daily merge failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	default:
		slog.Error("rainfall request failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to build rainfall report")
	}
}

func sendCSV(c *fiber.Ctx, filename string, write func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		slog.Error("csv export failed", "file", filename, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render csv")
	}
	c.Attachment(filename)
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.Send(buf.Bytes())
}
