package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LITREVIEW_WORKERS", "")
	t.Setenv("LITREVIEW_TOKEN_CEILING", "")
	cfg := Load()
	assert.Equal(t, 16, cfg.Workers)
	assert.Equal(t, 10000, cfg.TokenCeiling)
	assert.Equal(t, 2*time.Second, cfg.RetryDefaultWait)
	assert.False(t, cfg.CitationsEnabled)

	s := cfg.DefaultSettings()
	assert.Equal(t, 5000, s.FindingsChars)
	assert.Equal(t, 1500, s.EditMaxTokens)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LITREVIEW_WORKERS", "3")
	t.Setenv("LITREVIEW_RETRY_DEFAULT_WAIT", "1.5")
	t.Setenv("LITREVIEW_CITATIONS_ENABLED", "true")
	t.Setenv("LITREVIEW_LLM_REQUESTS_PER_SECOND", "2.5")
	t.Setenv("LITREVIEW_GAPS_CHARS", "not-a-number")
	cfg := Load()
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 1500*time.Millisecond, cfg.RetryDefaultWait)
	assert.True(t, cfg.CitationsEnabled)
	assert.Equal(t, 2.5, cfg.LLMRequestsPerSecond)
	assert.Equal(t, 5000, cfg.GapsChars)
}
