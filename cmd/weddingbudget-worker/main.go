package main

import (
	"context"
	"os"
	"time"

	"weddingbudget/internal/cli"
	"weddingbudget/internal/log"
	"weddingbudget/internal/services"
	"weddingbudget/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting weddingbudget-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	result := cli.InitBackend(context.Background(), logger, cfg, true)

	svc := services.NewBudgetService(result.Store, cfg.Members(), services.WithLogger(logger))

	var (
		exports   *services.ExportProcessor
		scheduler worker.ExportScheduler
	)
	if result.Exporter != nil {
		exports = services.NewExportProcessor(svc, result.Exporter, services.DefaultExportProcessorConfig(), logger)
		scheduler = exports
	} else {
		logger.Info("Ledger export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	reconciler := worker.NewReconcileWorker(svc, scheduler, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		logger.Info("Shutting down worker...")
		if exports != nil {
			if err := exports.Stop(shutdownCtx); err != nil {
				logger.Error("Export processor shutdown error", log.FieldError, err.Error())
			}
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err.Error())
		}
	})

	if exports != nil {
		if err := exports.Start(ctx); err != nil {
			logger.Error("Failed to start export processor", log.FieldError, err.Error())
			os.Exit(1)
		}
	}

	if err := reconciler.Run(ctx, result.AMQP); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
