// Package resilience retries oracle calls that fail for transient reasons.
package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/estimates-cli/internal/config"
)

// Policy bounds how often and how slowly a call is retried.
type Policy struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration

	// Retryable decides whether a failure is retried. IsTransient when nil.
	Retryable func(err error) bool

	// Name labels retry log lines.
	Name string
}

// PolicyFromConfig builds a Policy from the ocr.retry section. Non-positive
// values fall back to 3 attempts, 500ms initial and 10s maximum delay.
func PolicyFromConfig(cfg config.RetryConfig) Policy {
	p := Policy{Attempts: cfg.MaxAttempts}
	p.Initial = time.Duration(cfg.InitialBackoffMs) * time.Millisecond
	p.Max = time.Duration(cfg.MaxBackoffMs) * time.Millisecond
	return p.withDefaults()
}

func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.Initial <= 0 {
		p.Initial = 500 * time.Millisecond
	}
	if p.Max <= 0 {
		p.Max = 10 * time.Second
	}
	if p.Max < p.Initial {
		p.Max = p.Initial
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

// Delay is the wait before retry number attempt (0-based): Initial doubled
// per attempt, capped at Max, then spread by up to a quarter either way.
func (p Policy) Delay(attempt int) time.Duration {
	d := p.Initial
	for i := 0; i < attempt && d < p.Max; i++ {
		d *= 2
	}
	d = min(d, p.Max)
	spread := float64(d) / 4
	return d + time.Duration((rand.Float64()*2-1)*spread)
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// attempts run out. The last error is returned as is.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var (
		zero T
		err  error
	)
	for attempt := 0; attempt < p.Attempts; attempt++ {
		var val T
		if val, err = fn(ctx); err == nil {
			return val, nil
		}
		if ctx.Err() != nil || !p.Retryable(err) || attempt == p.Attempts-1 {
			return zero, err
		}

		wait := p.Delay(attempt)
		zap.L().Warn("resilience: retrying",
			zap.String("call", p.Name),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
	return zero, err
}
