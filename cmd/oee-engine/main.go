package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopfloorlabs/oee-engine/internal/api"
	"github.com/shopfloorlabs/oee-engine/internal/cache"
	"github.com/shopfloorlabs/oee-engine/internal/config"
	"github.com/shopfloorlabs/oee-engine/internal/engine"
	"github.com/shopfloorlabs/oee-engine/internal/metrics"
	"github.com/shopfloorlabs/oee-engine/internal/services"
	"github.com/shopfloorlabs/oee-engine/internal/utils"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("configuration load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	slog.SetDefault(logger)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("metrics registration failed", slog.Any("error", err))
		os.Exit(1)
	}

	presets := config.NewPresetStore()
	if cfg.Engine.PresetsPath != "" {
		if err := presets.LoadFile(cfg.Engine.PresetsPath); err != nil {
			logger.Error("preset load failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	tolerances := engine.DefaultTolerances()
	tolerances.AllocationRelative = cfg.Engine.AllocationTolerance

	pipeline := engine.NewPipeline(logger, tolerances)
	service := services.NewOeeService(pipeline, logger)

	var provider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled {
		provider = cache.NewMemoryProvider(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	}
	defer provider.Close()

	handler := api.NewHandler(service, presets, provider, logger)
	server, err := api.NewServer(cfg.Server.Address, handler.Routes(), logger)
	if err != nil {
		logger.Error("listen failed", slog.String("address", cfg.Server.Address), slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Engine.WatchPresets && cfg.Engine.PresetsPath != "" {
		go func() {
			if err := config.WatchPresets(ctx, presets, cfg.Engine.PresetsPath, logger); err != nil && ctx.Err() == nil {
				logger.Warn("preset watcher stopped", slog.Any("error", err))
			}
		}()
	}

	metricsServer := &http.Server{
		Addr:              cfg.Server.MetricsAddress,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown incomplete", slog.Any("error", err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown incomplete", slog.Any("error", err))
	}
	logger.Info("stopped")
}
