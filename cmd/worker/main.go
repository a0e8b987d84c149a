package main

import (
	"context"
	"os"
	"time"

	"litreview/internal/activities"
	"litreview/internal/config"
	"litreview/internal/observability"
	"litreview/internal/review"
	"litreview/internal/storage"
	"litreview/internal/workflows"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	logger := observability.NewLogger(observability.LoggingConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if cfg.PostgresURL == "" {
		logger.Fatal().Msg("LITREVIEW_POSTGRES_URL is required by the worker")
	}

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress, Logger: observability.NewTemporalLogger(logger)})
	if err != nil {
		logger.Fatal().Err(err).Msg("dial temporal")
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stores, err := storage.Open(ctx, cfg.PostgresURL, cfg.DefaultSettings(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open storage")
	}
	defer stores.Close()

	runner, err := review.Build(cfg, review.Deps{
		Runs:     stores.Runs,
		Settings: stores.Settings,
		Audit:    stores.Audit,
		Logger:   logger,
		Metrics:  observability.NewMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("build review runner")
	}

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, activities.New(runner, stores.Runs))

	logger.Info().
		Str("temporal", cfg.TemporalAddress).
		Str("queue", cfg.TemporalTaskQueue).
		Str("llm_providers", cfg.LLMProviders).
		Str("embed_providers", cfg.EmbedProviders).
		Msg("litreview worker listening")
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error().Err(err).Msg("worker stopped")
		os.Exit(1)
	}
}
