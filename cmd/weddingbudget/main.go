package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"weddingbudget/internal/amqp"
	"weddingbudget/internal/cache"
	"weddingbudget/internal/cli"
	apphttp "weddingbudget/internal/http"
	"weddingbudget/internal/log"
	"weddingbudget/internal/reconcile"
	"weddingbudget/internal/services"
	"weddingbudget/internal/worker"
)

const dashboardCacheSize = 1000

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	result := cli.InitBackend(context.Background(), logger, cfg, false)

	summaries := cache.NewLRUCache[reconcile.Summary](dashboardCacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager(logger.Logger)
	cacheManager.Register(summaries)

	// Without a broker, events are handled in-process: orphaned selections
	// are cleaned right away and exports run from this process.
	var (
		events  amqp.Publisher = result.Publisher()
		local   *worker.LocalPublisher
		exports *services.ExportProcessor
	)
	if events == nil {
		local = worker.NewLocalPublisher()
		events = local
	}

	svc := services.NewBudgetService(result.Store, cfg.Members(),
		services.WithPublisher(events),
		services.WithSummaryCache(summaries),
		services.WithLogger(logger),
	)

	if local != nil {
		var scheduler worker.ExportScheduler
		if result.Exporter != nil {
			exports = services.NewExportProcessor(svc, result.Exporter, services.DefaultExportProcessorConfig(), logger)
			scheduler = exports
		}
		local.Attach(worker.NewReconcileWorker(svc, scheduler, logger))
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		if exports != nil {
			if err := exports.Stop(shutdownCtx); err != nil {
				logger.Error("Export processor shutdown error", log.FieldError, err.Error())
			}
		}
		cacheManager.Stop()
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err.Error())
		}
	})

	cacheManager.StartCleanup(ctx, time.Minute)
	if exports != nil {
		if err := exports.Start(ctx); err != nil {
			logger.Error("Failed to start export processor", log.FieldError, err.Error())
			os.Exit(1)
		}
	}

	logger.Info("Starting weddingbudget server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"members", cfg.HouseholdMembers)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
