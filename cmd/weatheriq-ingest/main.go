// Command weatheriq-ingest runs a single bulk ingestion and exits.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/i474232898/weatheriq/internal/app"
	"github.com/i474232898/weatheriq/internal/config"
	"github.com/i474232898/weatheriq/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	report, err := a.Ingestor.Run(ctx)
	if cerr := a.Close(); cerr != nil {
		log.Error(ctx, "error closing store", logger.Error(cerr))
	}
	if err != nil {
		log.Fatal(ctx, "ingestion failed", logger.Error(err), logger.String("run_id", report.RunID))
	}
	log.Info(ctx, "ingestion complete",
		logger.String("run_id", report.RunID),
		logger.Int("batches", report.Batches),
		logger.Int("stored", report.Stored),
		logger.Int("invalid", report.Invalid),
		logger.Int("failed", report.Failed),
		logger.String("duration", report.Duration.String()))
}
