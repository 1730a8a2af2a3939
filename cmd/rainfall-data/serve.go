package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/rainfall-data/internal/api/http"
	"github.com/i474232898/rainfall-data/internal/app"
	"github.com/i474232898/rainfall-data/internal/scheduler"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Periodically drop expired cached responses.
	sched := scheduler.New(a.Cache, cfg.CachePurgeInterval)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	server := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * cfg.HTTPTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	server.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	server.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	server.Use(recover.New())

	server.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  appName,
			"timezone": cfg.Timezone,
			"daily":    cfg.DailySource,
			"cache":    cfg.CacheBackend,
		})
	})

	opts := httpapi.Options{Default: a.DefaultLocation()}
	if a.Geocoder != nil {
		opts.Geocoder = a.Geocoder
	}
	httpapi.RegisterRoutes(server, a.Service, opts)

	go func() {
		slog.Info("http server listening", "port", cfg.Port, "timezone", cfg.Timezone, "cache", cfg.CacheBackend)
		if err := server.Listen(":" + cfg.Port); err != nil {
			slog.Error("fiber server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("error during shutdown", "error", err)
	}
	slog.Info("http server stopped")
	return nil
}
