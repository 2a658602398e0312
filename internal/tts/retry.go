package tts

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/kazuvin/teto/internal/script"
	"github.com/kazuvin/teto/internal/teterr"
)

const (
	defaultAttempts = 3
	initialBackoff  = 500 * time.Millisecond
	maxBackoff      = 8 * time.Second
)

// Retrying wraps a provider with bounded exponential backoff on retryable
// failures (network and server errors). Auth, quota and invalid-input
// errors surface immediately.
type Retrying struct {
	inner    Provider
	attempts int
	backoff  time.Duration
	logger   zerolog.Logger
}

// WithRetry wraps the provider with the default retry policy.
func WithRetry(inner Provider, logger zerolog.Logger) *Retrying {
	return &Retrying{
		inner:    inner,
		attempts: defaultAttempts,
		backoff:  initialBackoff,
		logger:   logger.With().Str("component", "tts").Logger(),
	}
}

func (r *Retrying) Synthesize(ctx context.Context, text string, voice script.VoiceConfig) (*Result, error) {
	backoff := r.backoff
	var lastErr error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		res, err := r.inner.Synthesize(ctx, text, voice)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !teterr.Retryable(err) {
			return nil, err
		}
		if attempt == r.attempts {
			break
		}

		r.logger.Warn().Err(err).Int("attempt", attempt).Dur("backoff", backoff).
			Msg("tts synthesis failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return nil, lastErr
}

func (r *Retrying) EstimateDuration(text string, voice script.VoiceConfig) float64 {
	return r.inner.EstimateDuration(text, voice)
}
