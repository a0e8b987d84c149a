package capability

import (
	"context"

	"litreview/internal/observability"
	"litreview/internal/providers"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Func is one TextTransform call: a system role and prompt in, text out.
type Func func(ctx context.Context, req providers.GenerateRequest) (string, error)

// CallRecord is the audit trail of one provider call.
type CallRecord struct {
	CallID    string
	RunID     int64
	Operation string
	PaperID   string
	Provider  string
	Model     string
	Status    string
	ErrorType string
}

type AuditSink interface {
	RecordCall(ctx context.Context, rec CallRecord) error
}

type (
	paperKey struct{}
	runKey   struct{}
)

// WithPaper tags ctx so audit records can name the paper a call was made for.
func WithPaper(ctx context.Context, paperID string) context.Context {
	return context.WithValue(ctx, paperKey{}, paperID)
}

func paperFrom(ctx context.Context) string {
	id, _ := ctx.Value(paperKey{}).(string)
	return id
}

// WithRun tags ctx with the review run the calls belong to.
func WithRun(ctx context.Context, runID int64) context.Context {
	return context.WithValue(ctx, runKey{}, runID)
}

func runFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(runKey{}).(int64)
	return id
}

// FromProvider adapts an LLM provider. Every call is counted in metrics and,
// when sink is set, recorded. A failing sink is logged and never fails the call.
func FromProvider(p providers.LLMProvider, sink AuditSink, metrics *observability.Metrics, logger zerolog.Logger) Func {
	return func(ctx context.Context, req providers.GenerateRequest) (string, error) {
		resp, info, err := p.Generate(ctx, req)
		status, errType := "ok", ""
		if err != nil {
			status = "error"
			errType = string(providers.ClassifyError(err))
			if errType == string(providers.ErrorRate) {
				status = "rate_limited"
			}
		}
		metrics.ObserveCall(req.Operation, status)
		if sink != nil {
			rec := CallRecord{
				CallID:    uuid.NewString(),
				RunID:     runFrom(ctx),
				Operation: req.Operation,
				PaperID:   paperFrom(ctx),
				Provider:  info.Name,
				Model:     info.Model,
				Status:    status,
				ErrorType: errType,
			}
			if auditErr := sink.RecordCall(ctx, rec); auditErr != nil {
				logger.Warn().Err(auditErr).
					Str("call_id", rec.CallID).
					Str("operation", rec.Operation).
					Int64("run_id", rec.RunID).
					Msg("could not record provider call")
			}
		}
		if err != nil {
			return "", err
		}
		return resp.Text, nil
	}
}

// WithRateLimit waits for a token from l before every call. A nil limiter is a no-op.
func WithRateLimit(l *rate.Limiter, f Func) Func {
	if l == nil {
		return f
	}
	return func(ctx context.Context, req providers.GenerateRequest) (string, error) {
		if err := l.Wait(ctx); err != nil {
			return "", err
		}
		return f(ctx, req)
	}
}

// NewLimiter builds a limiter for rps requests per second; zero or less disables limiting.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
