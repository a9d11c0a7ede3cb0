package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/wildfire-etl/internal/adapter/fs"
	httpadapter "github.com/couchcryptid/wildfire-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/wildfire-etl/internal/adapter/kafka"
	"github.com/couchcryptid/wildfire-etl/internal/adapter/meteoblue"
	"github.com/couchcryptid/wildfire-etl/internal/config"
	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/couchcryptid/wildfire-etl/internal/observability"
	"github.com/couchcryptid/wildfire-etl/internal/pipeline"
	"github.com/couchcryptid/wildfire-etl/internal/store"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ledger, err := store.Open(cfg.LedgerPath, logger)
	if err != nil {
		logger.Error("failed to open run ledger", "path", cfg.LedgerPath, "error", err)
		os.Exit(1)
	}
	defer ledger.Close() //nolint:errcheck // closed on exit

	// Climate forecasts are feature-flagged via METEOBLUE_ENABLED / METEOBLUE_API_KEY.
	var forecaster domain.Forecaster
	if cfg.MeteoblueEnabled {
		client := meteoblue.NewClient(cfg.MeteoblueBaseURL, cfg.MeteoblueAPIKey, cfg.MeteoblueSharedSecret, cfg.MeteoblueTimeout, metrics, logger)
		forecaster = meteoblue.NewCachedForecaster(client, cfg.MeteoblueCacheSize, cfg.MeteoblueCacheTTL, clock, metrics)
		metrics.ClimateEnabled.Set(1)
		logger.Info("meteoblue forecasts enabled", "cache_size", cfg.MeteoblueCacheSize, "cache_ttl", cfg.MeteoblueCacheTTL, "timeout", cfg.MeteoblueTimeout)
	} else {
		logger.Info("meteoblue forecasts disabled")
	}

	var (
		sink   pipeline.DatasetSink
		writer *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		sink = writer
		logger.Info("kafka dataset sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	}

	files := fs.New(cfg.DataDir, cfg.FocosDir, logger)
	engineer := pipeline.NewEngineer(cfg.ClusterOptions(), logger)
	runner := pipeline.NewRunner(files, files, engineer, sink, ledger, pipeline.Options{
		Years:       cfg.DatasetYears,
		Concurrency: cfg.PipelineConcurrency,
		FailFast:    cfg.FailFast,
	}, clock, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Options{
		Ready:          runner,
		Runs:           ledger,
		Forecaster:     forecaster,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Run the batch once; the server keeps serving history and forecasts afterwards.
	go func() {
		summary, err := runner.Run(ctx, cfg.Regions)
		if err != nil {
			logger.Error("pipeline error", "error", err)
			return
		}
		for _, rep := range summary.Failed() {
			logger.Warn("region not exported", "region", rep.Region.Code, "error", rep.Err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
