package llm

import (
	"math/rand/v2"
	"time"
)

// RetryConfig controls how often a chat completion is retried after a
// transient failure. A describe request is interactive, so the defaults
// give up within roughly half a minute.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts per request.
	MaxAttempts int

	// BackoffBase is the wait before the second attempt.
	BackoffBase time.Duration

	// BackoffMultiplier is applied to the wait on each further attempt.
	BackoffMultiplier float64

	// MaxBackoff caps a single wait.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns retry defaults for chat completions.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        15 * time.Second,
	}
}

// backoff returns the wait after the given failed attempt (1-based), with
// +/- 25% jitter so parallel describe requests hitting a rate limit do not
// retry in lockstep.
func (rc RetryConfig) backoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= rc.BackoffMultiplier
	}

	wait := time.Duration(float64(rc.BackoffBase) * multiplier)
	if rc.MaxBackoff > 0 && wait > rc.MaxBackoff {
		wait = rc.MaxBackoff
	}

	jitter := float64(wait) * 0.25 * (rand.Float64()*2 - 1)
	return wait + time.Duration(jitter)
}
