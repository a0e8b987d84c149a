package providers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	cases := map[string]ErrorType{
		"insufficient_quota":           ErrorQuota,
		"429 rate limit":               ErrorRate,
		"Too Many Requests":            ErrorRate,
		"context length exceeded":      ErrorContext,
		"timeout":                      ErrorTransient,
		"bad request":                  ErrorPermanent,
		"generate request failed: eof": ErrorPermanent,
	}
	for msg, want := range cases {
		if got := ClassifyError(errors.New(msg)); got != want {
			t.Fatalf("classify %q: got %s want %s", msg, got, want)
		}
	}
	wrapped := fmt.Errorf("call: %w", &RateLimitError{Provider: "groq"})
	assert.Equal(t, ErrorRate, ClassifyError(wrapped))
}

func TestParseRetryAfter(t *testing.T) {
	d, ok := ParseRetryAfter("Rate limit reached. Please try again in 7.66s. Visit ...")
	require.True(t, ok)
	assert.Equal(t, 7660*time.Millisecond, d)

	d, ok = ParseRetryAfter("please try again in 820ms")
	require.True(t, ok)
	assert.Equal(t, 820*time.Millisecond, d)

	_, ok = ParseRetryAfter("slow down")
	assert.False(t, ok)
}

func TestNewRateLimitErrorUsesHeaderWhenBodyHasNoHint(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "3")
	e := newRateLimitError("openai", h, "too many requests")
	assert.Equal(t, 3*time.Second, e.RetryAfter)

	rl, ok := AsRateLimit(fmt.Errorf("wrap: %w", e))
	require.True(t, ok)
	assert.Equal(t, "openai", rl.Provider)
}
