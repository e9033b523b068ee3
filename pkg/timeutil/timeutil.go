package timeutil

import (
	"math"
	"math/rand"
	"time"
)

// DurationPtr is a helper function to create a pointer to a time.Duration
func DurationPtr(d time.Duration) *time.Duration {
	return &d
}

// ExponentialBackoffDelay computes the delay before the next retry attempt.
// The delay grows as initial * multiplier^(attempt-1), capped at the
// configured maximum, with a uniformly random jitter added on top.
//
// attempt is 1-based: the first backoff (attempt=1) sleeps for the
// initial duration.
func ExponentialBackoffDelay(
	attempt int,
	jitter time.Duration,
	rng rand.Rand,
	param BackoffParam,
) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	exponent := float64(attempt - 1)
	delay := float64(param.InitialDuration()) * math.Pow(param.Multiplier(), exponent)
	if max := float64(param.MaxDuration()); param.MaxDuration() > 0 && delay > max {
		delay = max
	}

	if jitter > 0 {
		delay += float64(rng.Int63n(int64(jitter)))
	}

	if delay < 0 {
		return 0
	}
	return time.Duration(delay)
}
