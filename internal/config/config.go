package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"litreview/internal/models"
)

type Config struct {
	APIAddr           string
	TemporalAddress   string
	TemporalTaskQueue string
	PostgresURL       string
	DataOutRoot       string
	LLMProviders      string
	EmbedProviders    string
	EmbedDim          int
	LogLevel          string
	LogFormat         string

	Workers              int
	IngestWorkers        int
	AnalyzeMaxConcurrent int
	TokenCeiling         int
	TokenizerModel       string
	RetryDefaultWait     time.Duration
	LLMRequestsPerSecond float64
	CitationsEnabled     bool
	MaxThemes            int

	ResearchQuestionChars int
	MethodologyChars      int
	FindingsChars         int
	GapsChars             int
	ComposeMaxTokens      int
	EditMaxTokens         int
	StyleMaxTokens        int
}

func Load() Config {
	return Config{
		APIAddr:           getenv("LITREVIEW_API_ADDR", ":8080"),
		TemporalAddress:   getenv("LITREVIEW_TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalTaskQueue: getenv("LITREVIEW_TEMPORAL_TASK_QUEUE", "litreview"),
		PostgresURL:       getenv("LITREVIEW_POSTGRES_URL", ""),
		DataOutRoot:       getenv("LITREVIEW_DATA_OUT", "./data/out"),
		LLMProviders:      getenv("LITREVIEW_LLM_PROVIDERS", "mock"),
		EmbedProviders:    getenv("LITREVIEW_EMBED_PROVIDERS", "mock"),
		EmbedDim:          getenvInt("LITREVIEW_EMBED_DIM", 1536),
		LogLevel:          getenv("LITREVIEW_LOG_LEVEL", "info"),
		LogFormat:         getenv("LITREVIEW_LOG_FORMAT", "json"),

		Workers:              getenvInt("LITREVIEW_WORKERS", 16),
		IngestWorkers:        getenvInt("LITREVIEW_INGEST_WORKERS", 4),
		AnalyzeMaxConcurrent: getenvInt("LITREVIEW_ANALYZE_MAX_CONCURRENT", 4),
		TokenCeiling:         getenvInt("LITREVIEW_TOKEN_CEILING", 10000),
		TokenizerModel:       getenv("LITREVIEW_TOKENIZER_MODEL", "gpt-4o-mini"),
		RetryDefaultWait:     getenvDuration("LITREVIEW_RETRY_DEFAULT_WAIT", 2*time.Second),
		LLMRequestsPerSecond: getenvFloat("LITREVIEW_LLM_REQUESTS_PER_SECOND", 0),
		CitationsEnabled:     getenvBool("LITREVIEW_CITATIONS_ENABLED", false),
		MaxThemes:            getenvInt("LITREVIEW_MAX_THEMES", 5),

		ResearchQuestionChars: getenvInt("LITREVIEW_RESEARCH_QUESTION_CHARS", 5000),
		MethodologyChars:      getenvInt("LITREVIEW_METHODOLOGY_CHARS", 5000),
		FindingsChars:         getenvInt("LITREVIEW_FINDINGS_CHARS", 5000),
		GapsChars:             getenvInt("LITREVIEW_GAPS_CHARS", 5000),
		ComposeMaxTokens:      getenvInt("LITREVIEW_COMPOSE_MAX_TOKENS", 1500),
		EditMaxTokens:         getenvInt("LITREVIEW_EDIT_MAX_TOKENS", 1500),
		StyleMaxTokens:        getenvInt("LITREVIEW_STYLE_MAX_TOKENS", 2048),
	}
}

// DefaultSettings is used whenever the settings store is unavailable.
func (c Config) DefaultSettings() models.Settings {
	return models.Settings{
		ResearchQuestionChars: c.ResearchQuestionChars,
		MethodologyChars:      c.MethodologyChars,
		FindingsChars:         c.FindingsChars,
		GapsChars:             c.GapsChars,
		ComposeMaxTokens:      c.ComposeMaxTokens,
		EditMaxTokens:         c.EditMaxTokens,
	}.Normalize()
}

func getenv(k, fallback string) string {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(k string, fallback float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvBool(k string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// getenvDuration accepts Go durations ("2s") or plain seconds ("2").
func getenvDuration(k string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}
