package timeutil

import (
	"math"
	"math/rand"
	"time"
)

// SecondsToDuration converts fractional seconds, as accepted on the command line, into a Duration.
func SecondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// ComputeJitter returns a uniformly distributed duration in [0, max).
// The caller owns rng and must serialize access to it.
func ComputeJitter(max time.Duration, rng *rand.Rand) time.Duration {
	if max <= 0 || rng == nil {
		return 0
	}
	return time.Duration(rng.Int63n(int64(max)))
}

// ExponentialBackoffDelay computes the delay before the given backoff attempt (1-based):
// initial * multiplier^(count-1), capped at the maximum, plus jitter.
func ExponentialBackoffDelay(
	backoffCount int,
	jitter time.Duration,
	rng *rand.Rand,
	param BackoffParam,
) time.Duration {
	if backoffCount < 1 {
		backoffCount = 1
	}

	base := float64(param.InitialDuration()) * math.Pow(param.Multiplier(), float64(backoffCount-1))
	if maxDelay := param.MaxDuration(); maxDelay > 0 && base > float64(maxDelay) {
		base = float64(maxDelay)
	}
	if base < 0 || math.IsNaN(base) {
		base = 0
	}

	return time.Duration(base) + ComputeJitter(jitter, rng)
}
