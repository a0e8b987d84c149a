package main

import (
	"context"
	"net/http"
	"time"

	"litreview/internal/api"
	"litreview/internal/config"
	"litreview/internal/observability"
	"litreview/internal/review"
	"litreview/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	tclient "go.temporal.io/sdk/client"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	logger := observability.NewLogger(observability.LoggingConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if cfg.PostgresURL == "" {
		logger.Fatal().Msg("LITREVIEW_POSTGRES_URL is required by the api")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stores, err := storage.Open(ctx, cfg.PostgresURL, cfg.DefaultSettings(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open storage")
	}
	defer stores.Close()

	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress, Logger: observability.NewTemporalLogger(logger)})
	if err != nil {
		logger.Fatal().Err(err).Msg("dial temporal")
	}
	defer tc.Close()

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	runner, err := review.Build(cfg, review.Deps{
		Runs:     stores.Runs,
		Settings: stores.Settings,
		Audit:    stores.Audit,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("build review runner")
	}

	h := api.NewServer(cfg, api.Deps{
		Runs:     stores.Runs,
		Settings: stores.Settings,
		Temporal: tc,
		Styles:   runner.Sequencer,
		Gatherer: prometheus.DefaultGatherer,
		Logger:   logger,
	})
	logger.Info().Str("addr", cfg.APIAddr).Str("llm_providers", cfg.LLMProviders).Msg("litreview api listening")
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		logger.Fatal().Err(err).Msg("api stopped")
	}
}
