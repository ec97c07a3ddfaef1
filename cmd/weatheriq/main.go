package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weatheriq/internal/api/http"
	"github.com/i474232898/weatheriq/internal/app"
	"github.com/i474232898/weatheriq/internal/config"
	"github.com/i474232898/weatheriq/internal/logger"
	"github.com/i474232898/weatheriq/internal/scheduler"
)

func main() {
	ctx := context.Background()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		bootLog, _ := logger.New("error", os.Stderr)
		bootLog.Fatal(ctx, "failed to load config", logger.Error(err))
	}

	log, err := logger.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		bootLog, _ := logger.New("error", os.Stderr)
		bootLog.Fatal(ctx, "failed to create logger", logger.Error(err))
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal(ctx, "failed to initialise application", logger.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error(ctx, "error closing store", logger.Error(err))
		}
	}()

	// Scheduler that periodically runs bulk ingestion.
	sched := scheduler.New(a.Ingestor, cfg.IngestInterval, cfg.IngestOnStart, 0, log.Named("scheduler"))
	if err := sched.Start(); err != nil {
		// Fatal exits without running deferred calls.
		_ = a.Close()
		log.Fatal(ctx, "failed to start scheduler", logger.Error(err))
	}
	defer sched.Stop()

	// Basic app configuration
	server := fiber.New(fiber.Config{
		AppName:               "weatheriq",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	server.Use(fiberlogger.New())
	server.Use(recover.New())

	// API routes.
	httpapi.RegisterRoutes(server, a.Query, a.Metrics)

	go func() {
		log.Info(ctx, "http server listening", logger.String("addr", cfg.Addr))
		if err := server.Listen(cfg.Addr); err != nil {
			log.Error(ctx, "fiber server stopped", logger.Error(err))
		}
	}()

	// Wait for termination signal
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error(ctx, "error during shutdown", logger.Error(err))
	}
}
