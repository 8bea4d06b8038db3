// Package retry is the resilient invoker: it runs an operation through
// an optional circuit breaker with exponential backoff between attempts,
// and reports the outcome as a typed Result.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/haasonsaas/warden/internal/backoff"
	"github.com/haasonsaas/warden/internal/circuit"
	"github.com/haasonsaas/warden/internal/errctx"
)

// Config configures a resilient invocation.
type Config struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int

	// Policy computes the delay before each retry.
	Policy backoff.Policy

	// Breaker, when non-nil, gates every attempt and is fed each outcome.
	Breaker *circuit.Breaker

	// Retryable decides whether a failure is worth another attempt.
	// When nil, every failure is retryable.
	Retryable func(error) bool

	// OnRetry is called before each backoff sleep with the attempt
	// number that just failed and its error.
	OnRetry func(attempt int, err error)
}

// DefaultConfig matches the upstream request layer defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		Policy:      backoff.DefaultPolicy(),
	}
}

// Do runs fn with retries. Attempts are 1-indexed. It returns Ok with
// fn's value, or Err with an ErrorContext describing the final failure:
// a refused call while the breaker is open, a non-retryable error, a
// cancelled context, or exhaustion of all attempts.
func Do[T any](ctx context.Context, operation string, config Config, fn func(context.Context) (T, error)) errctx.Result[T] {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errctx.Err[T](errctx.Classify(err, operation))
		}

		if config.Breaker != nil && !config.Breaker.Allow() {
			return errctx.Err[T](circuitOpenError(operation, config.Breaker))
		}

		value, err := fn(ctx)
		if err == nil {
			if config.Breaker != nil {
				config.Breaker.RecordSuccess()
			}
			return errctx.Ok(value)
		}

		if config.Breaker != nil {
			config.Breaker.RecordFailure()
		}
		lastErr = err

		if config.Retryable != nil && !config.Retryable(err) {
			return errctx.Err[T](errctx.Classify(err, operation))
		}

		if attempt < config.MaxAttempts {
			if config.OnRetry != nil {
				config.OnRetry(attempt, err)
			}
			select {
			case <-ctx.Done():
				return errctx.Err[T](errctx.Classify(ctx.Err(), operation))
			case <-time.After(config.Policy.Delay(attempt)):
			}
		}
	}

	return errctx.Err[T](exhaustedError(operation, config.MaxAttempts, lastErr))
}

func circuitOpenError(operation string, b *circuit.Breaker) *errctx.ErrorContext {
	return errctx.New(errctx.CategoryUpstream, errctx.SeverityMedium, operation,
		"The service is temporarily unavailable after repeated failures.").
		AsRecoverable().
		WithSuggestion("Wait a moment and try again.").
		WithTech("circuit breaker %q is %s", b.Name(), b.State()).
		WithCause(circuit.ErrCircuitOpen)
}

func exhaustedError(operation string, attempts int, cause error) *errctx.ErrorContext {
	classified := errctx.Classify(cause, operation)
	e := errctx.New(classified.Category, errctx.SeverityHigh, operation,
		fmt.Sprintf("Operation failed after %d attempts.", attempts)).
		AsRecoverable().
		WithSuggestion("Try again later.").
		WithCause(cause)
	if cause != nil {
		e.TechMessage = fmt.Sprintf("exhausted %d attempts: %v", attempts, cause)
	}
	return e
}
