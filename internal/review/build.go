package review

import (
	"litreview/internal/analysis"
	"litreview/internal/capability"
	"litreview/internal/config"
	"litreview/internal/ingest"
	"litreview/internal/observability"
	"litreview/internal/pdftext"
	"litreview/internal/providers"

	"github.com/rs/zerolog"
)

// Deps are the collaborators a Runner needs beyond configuration. Audit may be nil.
type Deps struct {
	Runs     RunStore
	Settings SettingsStore
	Audit    capability.AuditSink
	Logger   zerolog.Logger
	Metrics  *observability.Metrics
}

// Build wires a Runner from configuration: providers, rate limiting, retry
// policy, token budget, PDF reader and theme clustering.
func Build(cfg config.Config, deps Deps) (*Runner, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	call := capability.WithRateLimit(
		capability.NewLimiter(cfg.LLMRequestsPerSecond),
		capability.FromProvider(pm.LLM(), deps.Audit, deps.Metrics, deps.Logger),
	)
	policy := capability.DefaultPolicy()
	policy.DefaultWait = cfg.RetryDefaultWait
	policy.Metrics = deps.Metrics
	policy.Logger = deps.Logger

	guard := capability.Guard{
		Counter: capability.NewCounter(cfg.TokenizerModel, deps.Logger),
		Ceiling: cfg.TokenCeiling,
		Metrics: deps.Metrics,
	}

	return &Runner{
		Runs:     deps.Runs,
		Settings: deps.Settings,
		Defaults: cfg.DefaultSettings(),
		Ingestor: ingest.NewIngestor(pdftext.NewReader(), cfg.IngestWorkers, deps.Logger, deps.Metrics),
		Analyzer: analysis.NewAnalyzer(call, policy, cfg.Workers, cfg.CitationsEnabled, deps.Logger),
		Themer: &analysis.Themer{
			Embedder:  analysis.ProviderEmbedder{Provider: pm.Embedder(), Dimension: cfg.EmbedDim},
			Clusterer: analysis.KMeansClusterer{},
			Label:     capability.WithRetry(policy, call),
			MaxThemes: cfg.MaxThemes,
			Logger:    deps.Logger,
		},
		Sequencer: NewSequencer(call, policy, guard, cfg.StyleMaxTokens, deps.Logger),
		OutRoot:   cfg.DataOutRoot,
		Logger:    deps.Logger,
		Metrics:   deps.Metrics,
	}, nil
}
