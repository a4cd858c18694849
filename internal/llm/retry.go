package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig configures transport-level retries.
type RetryConfig struct {
	Attempts int           // total attempts (default 3)
	Base     time.Duration // delay before attempt n+1 is Base*n (default 300ms)
	Logger   zerolog.Logger
}

// Retrying retries transient provider errors with linear backoff. Hard and
// malformed-response errors are returned immediately.
type Retrying struct {
	next Provider
	cfg  RetryConfig
	log  zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrying wraps p.
func NewRetrying(p Provider, cfg RetryConfig) *Retrying {
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.Base == 0 {
		cfg.Base = 300 * time.Millisecond
	}
	return &Retrying{
		next:  p,
		cfg:   cfg,
		log:   cfg.Logger.With().Str("component", "llm-retry").Logger(),
		sleep: sleepCtx,
	}
}

func (r *Retrying) Generate(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.Attempts; attempt++ {
		out, err := r.next.Generate(ctx, req)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !IsTransient(err) {
			return "", err
		}
		lastErr = err
		if attempt == r.cfg.Attempts {
			break
		}
		delay := time.Duration(attempt) * r.cfg.Base
		r.log.Debug().Err(err).Str("request", req.Name).Int("attempt", attempt).Dur("delay", delay).Msg("retrying model call")
		if err := r.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
	r.log.Warn().Err(lastErr).Str("request", req.Name).Int("attempts", r.cfg.Attempts).Msg("model call gave up")
	return "", exhausted(req.Name, r.cfg.Attempts, lastErr)
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
