package capability

import (
	"context"
	"time"

	"litreview/internal/observability"
	"litreview/internal/providers"

	"github.com/rs/zerolog"
)

type Policy struct {
	// DefaultWait applies when the provider gives no retry hint.
	DefaultWait time.Duration
	// Buffer is added on top of a provider hint.
	Buffer  time.Duration
	Sleep   func(ctx context.Context, d time.Duration) error
	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

func DefaultPolicy() Policy {
	return Policy{
		DefaultWait: 2 * time.Second,
		Buffer:      100 * time.Millisecond,
		Sleep:       sleepCtx,
		Logger:      zerolog.Nop(),
	}
}

func (p Policy) wait(err error) time.Duration {
	if rl, ok := providers.AsRateLimit(err); ok && rl.RetryAfter > 0 {
		return rl.RetryAfter + p.Buffer
	}
	if d, ok := providers.ParseRetryAfter(err.Error()); ok {
		return d + p.Buffer
	}
	if p.DefaultWait > 0 {
		return p.DefaultWait
	}
	return 2 * time.Second
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return sleepCtx(ctx, d)
}

func isRateLimited(err error) bool {
	if _, ok := providers.AsRateLimit(err); ok {
		return true
	}
	return providers.ClassifyError(err) == providers.ErrorRate
}

// call retries f for as long as it is rate limited. Only cancellation of ctx
// ends the loop early.
func (p Policy) call(ctx context.Context, f Func, req providers.GenerateRequest) (string, error) {
	for {
		out, err := f(ctx, req)
		if err == nil {
			return out, nil
		}
		if !isRateLimited(err) {
			return "", err
		}
		d := p.wait(err)
		p.Metrics.ObserveRateLimitWait(req.Operation)
		p.Logger.Info().Str("operation", req.Operation).Dur("wait", d).Msg("rate limited, backing off")
		if serr := p.sleep(ctx, d); serr != nil {
			return "", serr
		}
	}
}

// WithRetry retries rate-limited calls without bound and propagates every other error.
func WithRetry(p Policy, f Func) Func {
	return func(ctx context.Context, req providers.GenerateRequest) (string, error) {
		return p.call(ctx, f, req)
	}
}

// Degradable yields ok=false instead of an error.
type Degradable func(ctx context.Context, req providers.GenerateRequest) (string, bool)

// WithRetryOrDegrade retries rate limits like WithRetry but turns any other
// failure into an explicit empty result.
func WithRetryOrDegrade(p Policy, f Func) Degradable {
	return func(ctx context.Context, req providers.GenerateRequest) (string, bool) {
		out, err := p.call(ctx, f, req)
		if err != nil {
			p.Metrics.ObserveDegraded(req.Operation)
			p.Logger.Warn().Err(err).Str("operation", req.Operation).Msg("analysis call degraded to empty result")
			return "", false
		}
		return out, true
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
