// Package backoff computes retry delays: exponential growth from a base
// delay, capped at a maximum, with optional uniform jitter.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Policy describes how retry delays grow with the attempt number.
type Policy struct {
	// BaseDelay is the delay for the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the unjittered delay.
	MaxDelay time.Duration

	// Jitter spreads the capped delay uniformly over [0.75x, 1.25x]
	// so simultaneous clients do not retry in lockstep.
	Jitter bool
}

// DefaultPolicy matches the upstream request layer defaults: 1s base,
// 30s cap, jitter on.
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay: 1 * time.Second,
		MaxDelay:  30 * time.Second,
		Jitter:    true,
	}
}

// Delay returns the delay before the next try after the given attempt.
// Attempts are 1-indexed: attempt 1 waits BaseDelay, each further attempt
// doubles, capped at MaxDelay. Jitter, when enabled, is applied after the
// cap, so a jittered delay may exceed MaxDelay by up to 25%.
func (p Policy) Delay(attempt int) time.Duration {
	return p.DelayWithRand(attempt, rand.Float64())
}

// DelayWithRand is Delay with the random draw (in [0, 1)) supplied by the
// caller, for deterministic tests.
func (p Policy) DelayWithRand(attempt int, r float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := float64(p.BaseDelay) * math.Pow(2, float64(attempt-1))
	if max := float64(p.MaxDelay); d > max {
		d = max
	}

	if p.Jitter {
		d *= 0.75 + 0.5*r
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
