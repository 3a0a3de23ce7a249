// Command coverd runs the radio coverage map service: it accepts observation
// submissions over HTTP and (optionally) from a broker topic, merges them per
// geocell, and serves the aggregate projections.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/radiowatch/coverage-map/internal/adapter/elevation"
	"github.com/radiowatch/coverage-map/internal/adapter/httpapi"
	kafkaadapter "github.com/radiowatch/coverage-map/internal/adapter/kafka"
	"github.com/radiowatch/coverage-map/internal/config"
	"github.com/radiowatch/coverage-map/internal/coverage"
	"github.com/radiowatch/coverage-map/internal/domain"
	"github.com/radiowatch/coverage-map/internal/ingest"
	"github.com/radiowatch/coverage-map/internal/observability"
	"github.com/radiowatch/coverage-map/internal/store"
	"github.com/radiowatch/coverage-map/internal/store/memstore"
	"github.com/radiowatch/coverage-map/internal/store/sqlstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var st store.Store
	switch cfg.DBDriver {
	case "sqlite":
		st, err = sqlstore.Open(cfg.DBPath)
		if err != nil {
			logger.Error("failed to open store", "path", cfg.DBPath, "error", err)
			os.Exit(1)
		}
		logger.Info("sqlite store opened", "path", cfg.DBPath)
	default:
		st = memstore.New()
		logger.Info("in-memory store initialized")
	}

	// Elevation lookup (feature-flagged via ELEVATION_ENABLED).
	var lookup domain.ElevationLookup
	if cfg.ElevationEnabled {
		client := elevation.NewClient(cfg.ElevationURL, cfg.ElevationTimeout, metrics, logger)
		lookup = elevation.NewCachedLookup(client, cfg.ElevationCacheSize, metrics)
		metrics.ElevationEnabled.Set(1)
		logger.Info("elevation lookup enabled", "url", cfg.ElevationURL, "cache_size", cfg.ElevationCacheSize)
	} else {
		logger.Info("elevation lookup disabled")
	}

	svc := coverage.New(st, lookup, cfg.ElevationTimeout, logger, metrics)
	srv := httpapi.NewServer(cfg.HTTPAddr, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.ServiceRunning.Set(1)
	defer metrics.ServiceRunning.Set(0)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start broker ingest (feature-flagged via KAFKA_ENABLED).
	var reader *kafkaadapter.Reader
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		loop := ingest.New(reader, svc, logger, metrics, cfg.BatchSize)
		go func() {
			if err := loop.Run(ctx); err != nil {
				logger.Error("ingest loop error", "error", err)
			}
		}()
		logger.Info("broker ingest enabled", "topic", cfg.KafkaSourceTopic, "group", cfg.KafkaGroupID)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if err := st.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
