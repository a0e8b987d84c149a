package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	CapabilityCalls  *prometheus.CounterVec
	RateLimitWaits   *prometheus.CounterVec
	DegradedFields   *prometheus.CounterVec
	BudgetRejections prometheus.Counter
	PapersIngested   prometheus.Counter
	PapersFailed     prometheus.Counter
	SectionFallbacks *prometheus.CounterVec
	RunsFinished     *prometheus.CounterVec
	RunDuration      prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CapabilityCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "litreview",
			Name:      "capability_calls_total",
			Help:      "Text transform calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		RateLimitWaits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "litreview",
			Name:      "rate_limit_waits_total",
			Help:      "Backoff sleeps caused by rate limiting.",
		}, []string{"operation"}),
		DegradedFields: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "litreview",
			Name:      "degraded_fields_total",
			Help:      "Per-paper analysis fields left empty after a failure.",
		}, []string{"operation"}),
		BudgetRejections: f.NewCounter(prometheus.CounterOpts{
			Namespace: "litreview",
			Name:      "budget_rejections_total",
			Help:      "Prompts rejected before sending because of the token ceiling.",
		}),
		PapersIngested: f.NewCounter(prometheus.CounterOpts{
			Namespace: "litreview",
			Name:      "papers_ingested_total",
			Help:      "PDFs successfully structured.",
		}),
		PapersFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "litreview",
			Name:      "papers_failed_total",
			Help:      "PDFs skipped because they could not be read.",
		}),
		SectionFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "litreview",
			Name:      "section_fallbacks_total",
			Help:      "Categories resolved from raw pages instead of detected sections.",
		}, []string{"category"}),
		RunsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "litreview",
			Name:      "runs_finished_total",
			Help:      "Review runs by terminal status.",
		}, []string{"status"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "litreview",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of review runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

func (m *Metrics) ObserveCall(operation, outcome string) {
	if m == nil {
		return
	}
	m.CapabilityCalls.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveRateLimitWait(operation string) {
	if m == nil {
		return
	}
	m.RateLimitWaits.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveDegraded(operation string) {
	if m == nil {
		return
	}
	m.DegradedFields.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveBudgetRejection() {
	if m == nil {
		return
	}
	m.BudgetRejections.Inc()
}

func (m *Metrics) ObserveIngest(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.PapersIngested.Inc()
		return
	}
	m.PapersFailed.Inc()
}

func (m *Metrics) ObserveFallback(category string) {
	if m == nil {
		return
	}
	m.SectionFallbacks.WithLabelValues(category).Inc()
}

func (m *Metrics) ObserveRun(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RunsFinished.WithLabelValues(status).Inc()
	m.RunDuration.Observe(elapsed.Seconds())
}
