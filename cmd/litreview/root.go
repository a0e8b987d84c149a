package main

import (
	"context"

	"litreview/internal/config"
	"litreview/internal/observability"
	"litreview/internal/review"
	"litreview/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "litreview",
		Short:         "Generate a literature review from a folder of research papers",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(*cobra.Command, []string) {
			_ = godotenv.Load(".env")
		},
	}
	root.AddCommand(NewRunCommand())
	root.AddCommand(NewDescribeStyleCommand())
	return root
}

// session is a runner with the stores it writes to.
type session struct {
	runner *review.Runner
	stores *storage.Stores
	logger zerolog.Logger
}

func openSession(ctx context.Context) (*session, error) {
	cfg := config.Load()
	logger := observability.NewLogger(observability.LoggingConfig{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stderr"})
	stores, err := storage.Open(ctx, cfg.PostgresURL, cfg.DefaultSettings(), logger)
	if err != nil {
		return nil, err
	}
	runner, err := review.Build(cfg, review.Deps{
		Runs:     stores.Runs,
		Settings: stores.Settings,
		Audit:    stores.Audit,
		Logger:   logger,
		Metrics:  observability.NewMetrics(prometheus.NewRegistry()),
	})
	if err != nil {
		stores.Close()
		return nil, err
	}
	return &session{runner: runner, stores: stores, logger: logger}, nil
}

func (s *session) Close() {
	s.stores.Close()
}
