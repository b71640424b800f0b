package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Salad109/satellite-conjunction-api/internal/api"
	"github.com/Salad109/satellite-conjunction-api/internal/conjunction"
	"github.com/Salad109/satellite-conjunction-api/internal/config"
	"github.com/Salad109/satellite-conjunction-api/internal/ingestion"
	"github.com/Salad109/satellite-conjunction-api/internal/metrics"
	"github.com/Salad109/satellite-conjunction-api/internal/satellite"
	"github.com/Salad109/satellite-conjunction-api/internal/scheduler"
	"github.com/Salad109/satellite-conjunction-api/internal/screening"
	"github.com/Salad109/satellite-conjunction-api/internal/stream"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	addr := config.HTTPAddr()

	authCfg, err := config.LoadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	catalog := satellite.NewInMemoryCatalogStore()
	conjunctions := conjunction.NewInMemoryStore()

	ingestCfg := config.LoadIngestionConfig(logger)
	fetcher := ingestCfg.NewFetcher(logger)
	ingestLogs := ingestion.NewInMemoryLogStore()
	ingestSvc := ingestion.NewService(fetcher, ingestCfg.CacheDir, ingestCfg.MaxCacheFiles, catalog, ingestLogs, ingestCfg.BatchSize, logger)

	// Warm-load from the on-disk cache before the first scheduled or
	// upstream-reachable sync, so the catalog isn't empty on a cold start.
	if result, err := ingestSvc.SyncFromCache(); err != nil {
		logger.Info("no TLE cache found, starting with an empty catalog", "error", err)
	} else {
		logger.Info("loaded catalog from cache",
			"processed", result.ObjectsProcessed,
			"inserted", result.ObjectsInserted,
		)
	}
	metrics.SetCatalogObjectsTotal(catalog.Count())

	screeningCfg := config.LoadScreeningConfig(logger)
	publisher := stream.NewPublisher()
	orchestrator := screening.NewOrchestrator(catalog, conjunctions, publisher, screeningCfg, logger)

	streamCfg := config.LoadStreamConfig(logger)
	streamHandler := stream.NewHandler(conjunctions, publisher, streamCfg, logger)

	srv := api.NewServer(addr, logger, authCfg, catalog, ingestSvc, conjunctions, streamHandler)

	sched := scheduler.New(logger)
	if ingestCfg.EnableFetch {
		if err := sched.ScheduleIngestion(ingestCfg.ScheduleCron, ingestSvc); err != nil {
			logger.Error("invalid ingestion schedule", "cron", ingestCfg.ScheduleCron, "error", err)
			os.Exit(1)
		}
	}
	if err := sched.ScheduleScreening(ingestCfg.ScheduleCron, orchestrator); err != nil {
		logger.Error("invalid screening schedule", "cron", ingestCfg.ScheduleCron, "error", err)
		os.Exit(1)
	}
	sched.Start()

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server", "addr", addr, "auth_enabled", authCfg.Enabled, "tle_fetch_enabled", ingestCfg.EnableFetch)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sched.Stop(shutdownCtx)

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
