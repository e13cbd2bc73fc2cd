package client

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts including the first.
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// ForErrorClass adjusts the backoff for an error class. Rate limiting waits
// longer, network errors a little longer than server errors.
func (rc RetryConfig) ForErrorClass(errorClass ErrorClass) RetryConfig {
	switch errorClass {
	case ErrorClassRateLimit:
		rc.InitialBackoff *= 4
		rc.MaxBackoff *= 4
	case ErrorClassNetwork:
		rc.InitialBackoff *= 2
	}
	if rc.MaxAttempts < 1 {
		rc.MaxAttempts = 1
	}
	if rc.BackoffMultiplier < 1 {
		rc.BackoffMultiplier = 1
	}
	return rc
}

// attemptFunc performs one attempt and classifies its failure. A nil error
// ends the loop.
type attemptFunc func() (ErrorClass, error)

// retryWithBackoff runs fn until it succeeds, returns a non-retryable
// error, or MaxAttempts is reached. Backoff is exponential with ±20% jitter
// and respects context cancellation.
func retryWithBackoff(ctx context.Context, base RetryConfig, logger zerolog.Logger, fn attemptFunc) error {
	var (
		lastErr    error
		lastClass  ErrorClass
		config     RetryConfig
		backoff    time.Duration
		configured bool
	)

	for attempt := 1; ; attempt++ {
		errorClass, err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Str("error_class", string(lastClass)).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr, lastClass = err, errorClass
		if !shouldRetry(errorClass) {
			return lastErr
		}

		if !configured {
			config = base.ForErrorClass(errorClass)
			backoff = config.InitialBackoff
			configured = true
		}
		if attempt >= config.MaxAttempts {
			break
		}

		retriesTotal.WithLabelValues(string(errorClass)).Inc()

		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		retryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(jitter.Seconds())

		logger.Warn().
			Err(err).
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	retryExhaustedTotal.WithLabelValues(string(lastClass)).Inc()
	logger.Warn().
		Str("error_class", string(lastClass)).
		Int("max_attempts", config.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, config.MaxAttempts, lastErr)
}
