package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveCall("compose", "ok")
	m.ObserveCall("compose", "ok")
	m.ObserveRateLimitWait("methodology")
	m.ObserveBudgetRejection()
	m.ObserveIngest(true)
	m.ObserveIngest(false)
	m.ObserveRun("COMPLETED", 3*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CapabilityCalls.WithLabelValues("compose", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitWaits.WithLabelValues("methodology")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BudgetRejections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PapersIngested))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PapersFailed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsFinished.WithLabelValues("COMPLETED")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCall("x", "ok")
		m.ObserveDegraded("x")
		m.ObserveRun("FAILED", time.Second)
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", parseLevel("DEBUG").String())
	assert.Equal(t, "info", parseLevel("nonsense").String())
}
