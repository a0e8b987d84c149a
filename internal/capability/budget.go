package capability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"litreview/internal/observability"
	"litreview/internal/providers"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"github.com/rs/zerolog"
)

var ErrBudgetExceeded = errors.New("token budget exceeded")

type BudgetError struct {
	Estimated int
	Ceiling   int
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("prompt estimated at %d tokens, ceiling is %d", e.Estimated, e.Ceiling)
}

func (e *BudgetError) Unwrap() error { return ErrBudgetExceeded }

type TokenCounter interface {
	Count(text string) int
}

// Guard rejects prompts whose estimated size reaches Ceiling. A non-positive
// ceiling disables the check.
type Guard struct {
	Counter TokenCounter
	Ceiling int
	Metrics *observability.Metrics
}

func (g Guard) Check(text string) error {
	if g.Ceiling <= 0 || g.Counter == nil {
		return nil
	}
	n := g.Counter.Count(text)
	if n >= g.Ceiling {
		g.Metrics.ObserveBudgetRejection()
		return &BudgetError{Estimated: n, Ceiling: g.Ceiling}
	}
	return nil
}

// WithBudget checks the full prompt against g before f is ever called.
func WithBudget(g Guard, f Func) Func {
	return func(ctx context.Context, req providers.GenerateRequest) (string, error) {
		if err := g.Check(req.SystemRole + "\n" + req.Prompt); err != nil {
			return "", err
		}
		return f(ctx, req)
	}
}

var loaderOnce sync.Once

// TiktokenCounter counts tokens with the BPE encoding of a model, loaded offline.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("load tokenizer: %w", err)
		}
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// ApproxCounter assumes four characters per token.
type ApproxCounter struct{}

func (ApproxCounter) Count(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

// NewCounter prefers the model tokenizer and falls back to the approximation.
func NewCounter(model string, logger zerolog.Logger) TokenCounter {
	c, err := NewTiktokenCounter(model)
	if err != nil {
		logger.Warn().Err(err).Str("model", model).Msg("tokenizer unavailable, using approximate counts")
		return ApproxCounter{}
	}
	return c
}
