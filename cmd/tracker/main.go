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

	"golang.org/x/time/rate"

	httpadapter "github.com/couchcryptid/incident-tracker/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/incident-tracker/internal/adapter/kafka"
	"github.com/couchcryptid/incident-tracker/internal/backfill"
	"github.com/couchcryptid/incident-tracker/internal/config"
	"github.com/couchcryptid/incident-tracker/internal/domain"
	"github.com/couchcryptid/incident-tracker/internal/geocode"
	"github.com/couchcryptid/incident-tracker/internal/observability"
	"github.com/couchcryptid/incident-tracker/internal/pipeline"
	"github.com/couchcryptid/incident-tracker/internal/stats"
	"github.com/couchcryptid/incident-tracker/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	trackingStart, err := st.EnsureTrackingMarker(ctx)
	if err != nil {
		logger.Error("failed to ensure tracking marker", "error", err)
		os.Exit(1)
	}
	logger.Info("tracking started", "started_at", trackingStart)

	// Coordinates persisted under older region bounds are cleared here and
	// re-resolved by the repair pass.
	cleared, err := st.ClearOutOfRegionCoordinates(ctx, domain.CzechRegion)
	if err != nil {
		logger.Error("failed to sweep out-of-region coordinates", "error", err)
		os.Exit(1)
	}
	if cleared > 0 {
		logger.Info("cleared out-of-region coordinates", "count", cleared)
	}
	evicted, err := st.ClearOutOfRegionCache(ctx, domain.CzechRegion)
	if err != nil {
		logger.Error("failed to sweep geocode cache", "error", err)
		os.Exit(1)
	}
	if evicted > 0 {
		logger.Info("evicted out-of-region geocode cache entries", "count", evicted)
	}

	// Geocoding is feature-flagged via GEOCODE_ENABLED.
	var resolver backfill.Resolver
	if cfg.GeocodeEnabled {
		client := geocode.NewClient(cfg.GeocodeBaseURL, cfg.GeocodeCountry, cfg.GeocodeTimeout, logger)
		resolver = geocode.NewResolver(st, client, domain.CzechRegion, rate.Every(cfg.GeocodeMinInterval), logger, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("geocoding enabled", "base_url", cfg.GeocodeBaseURL, "country", cfg.GeocodeCountry, "min_interval", cfg.GeocodeMinInterval)
	} else {
		logger.Info("geocoding disabled")
	}

	prague, err := time.LoadLocation("Europe/Prague")
	if err != nil {
		logger.Error("failed to load calendar location", "error", err)
		os.Exit(1)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	pol := domain.MergePolicy{MaxDurationMin: cfg.MaxDurationMin}
	p := pipeline.New(reader, st, pol, logger, metrics)

	agg := stats.NewAggregator(st, domain.CzechRegion, prague)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, agg, logger)

	coord := backfill.New(st, resolver, cfg.BackfillDurationLimit, cfg.BackfillGeocodeLimit, cfg.MaxDurationMin, logger, metrics)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ingestion pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	// Run repair passes in the background on a fixed interval.
	go func() {
		ticker := time.NewTicker(cfg.BackfillInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runCtx, cancel := context.WithTimeout(ctx, cfg.BackfillInterval)
				coord.Run(runCtx)
				cancel()
			}
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}

	logger.Info("shutdown complete")
}
