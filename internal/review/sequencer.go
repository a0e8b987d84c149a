package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"litreview/internal/capability"
	"litreview/internal/models"
	"litreview/internal/util"

	"github.com/rs/zerolog"
)

const (
	DefaultStyleMaxTokens    = 2048
	DescribeStyleMaxTokens   = 512
	describeStyleSampleChars = 20000
)

// Sequencer runs compose, style and edit in order. Only compose is checked
// against the token budget.
type Sequencer struct {
	Call           capability.Func
	Policy         capability.Policy
	Guard          capability.Guard
	StyleMaxTokens int
	Logger         zerolog.Logger
}

func NewSequencer(call capability.Func, policy capability.Policy, guard capability.Guard, styleMaxTokens int, logger zerolog.Logger) *Sequencer {
	if styleMaxTokens <= 0 {
		styleMaxTokens = DefaultStyleMaxTokens
	}
	return &Sequencer{Call: call, Policy: policy, Guard: guard, StyleMaxTokens: styleMaxTokens, Logger: logger}
}

// Assemble composes the review from the analyzed papers. A compose prompt
// over budget yields a FAILED result carrying TooManyPapersMessage and no
// further calls. Other failures are returned as errors.
func (s *Sequencer) Assemble(ctx context.Context, papers []models.PaperRecord, themes map[string][]string, styleSample string, settings models.Settings) (models.ReviewResult, error) {
	settings = settings.Normalize()
	result := models.ReviewResult{Status: models.RunRunning, Papers: papers, Themes: themes}

	req, err := composeRequest(papers, themes, settings.ComposeMaxTokens)
	if err != nil {
		return result, err
	}
	compose := capability.WithBudget(s.Guard, capability.WithRetry(s.Policy, s.Call))
	draft, err := compose(ctx, req)
	if errors.Is(err, capability.ErrBudgetExceeded) {
		s.Logger.Warn().Err(err).Int("papers", len(papers)).Msg("compose prompt over token budget")
		result.Status = models.RunFailed
		result.FinalReview = TooManyPapersMessage
		result.Error = err.Error()
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("compose review: %w", err)
	}
	result.RawDraft = strings.TrimSpace(draft)

	call := capability.WithRetry(s.Policy, s.Call)
	styled := result.RawDraft
	if strings.TrimSpace(styleSample) != "" {
		out, err := call(ctx, styleRequest(result.RawDraft, styleSample, s.StyleMaxTokens))
		if err != nil {
			return result, fmt.Errorf("apply style: %w", err)
		}
		styled = strings.TrimSpace(out)
		result.StyleApplied = true
	}
	result.StyledDraft = styled

	editReq, err := editRequest(styled, papers, settings.EditMaxTokens)
	if err != nil {
		return result, err
	}
	final, err := call(ctx, editReq)
	if err != nil {
		return result, fmt.Errorf("edit review: %w", err)
	}
	result.FinalReview = strings.TrimSpace(final)
	result.Status = models.RunCompleted
	s.Logger.Info().Bool("style_applied", result.StyleApplied).Msg("review assembled")
	return result, nil
}

// DescribeStyle returns an objective description of a writing sample.
func (s *Sequencer) DescribeStyle(ctx context.Context, sample string) (string, error) {
	sample = strings.TrimSpace(util.SanitizeText(sample))
	if sample == "" {
		return "", errors.New("writing sample is empty")
	}
	sample = util.TruncateRunes(sample, describeStyleSampleChars)
	out, err := capability.WithRetry(s.Policy, s.Call)(ctx, describeStyleRequest(sample, DescribeStyleMaxTokens))
	if err != nil {
		return "", fmt.Errorf("describe style: %w", err)
	}
	return strings.TrimSpace(out), nil
}
