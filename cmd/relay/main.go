package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/eas-mesh-relay/internal/adapter/http"
	"github.com/couchcryptid/eas-mesh-relay/internal/config"
	"github.com/couchcryptid/eas-mesh-relay/internal/delivery"
	"github.com/couchcryptid/eas-mesh-relay/internal/domain"
	"github.com/couchcryptid/eas-mesh-relay/internal/observability"
	"github.com/couchcryptid/eas-mesh-relay/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	locations, err := loadLocations(cfg)
	if err != nil {
		logger.Error("failed to load location dataset", "error", err)
		os.Exit(1)
	}
	logger.Info("location dataset loaded", "counties", locations.Len(), "file", cfg.LocationsFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := newSource(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open alert source", "error", err)
		os.Exit(1)
	}

	sink, err := newSink(cfg, logger)
	if err != nil {
		logger.Error("failed to configure mesh sink", "error", err)
		os.Exit(1)
	}

	logBanner(cfg, logger)

	composer := domain.NewComposer(locations, domain.NewLocationFilter(cfg.LocationFilter), logger)
	engine := delivery.NewEngine(sink, engineOptions(cfg), logger, metrics)
	processor := pipeline.NewProcessor(composer, cfg.ChannelPolicy(), engine, logger, metrics)
	dedupe := pipeline.NewDeduper(cfg.DedupeWindow, cfg.DedupeSize)

	p := pipeline.New(source, processor, dedupe, logger, metrics)

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	// The relay exits when its source is exhausted as well as on a signal.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
		stop()
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}
	if err := source.Close(); err != nil {
		logger.Error("alert source close error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if err := sink.Close(); err != nil {
		logger.Error("mesh sink close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// logBanner reports the channel assignment at startup.
func logBanner(cfg *config.Config, logger *slog.Logger) {
	logger.Info("alerts will be sent to channel", "channel", int(cfg.AlertChannel))
	if cfg.TestChannelEnabled {
		logger.Info("test alerts will be sent to channel", "channel", int(cfg.TestChannel))
	} else {
		logger.Info("test alerts will be ignored")
	}
	if len(cfg.LocationFilter) > 0 {
		logger.Info("relaying only alerts for locations of interest", "locations", cfg.LocationFilter)
	}
	logger.Info("mesh sink configured", "sink", cfg.MeshSink, "split_messages", cfg.SplitMessages)
}
