package transport

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy computes how long the client waits before retrying a failed
// request. Implementations must be safe for concurrent use: one strategy is
// shared by every call the Client makes.
type BackoffStrategy interface {
	// NextInterval returns the wait before retry number attempt.
	// Attempt is 1 for the first retry; values below 1 return zero.
	NextInterval(attempt int) time.Duration
}

// ExponentialBackoff multiplies the wait by Multiplier after every retry and
// spreads it by a random factor in [1-JitterFactor, 1+JitterFactor]. The result
// never exceeds MaxInterval.
//
// Zero fields fall back to the defaults of DefaultBackoff, except JitterFactor:
// zero jitter is honoured and gives deterministic intervals.
type ExponentialBackoff struct {
	// InitialInterval is the wait before the first retry. Default 200ms.
	InitialInterval time.Duration
	// MaxInterval caps every wait, jitter included. Default 5s.
	MaxInterval time.Duration
	// Multiplier is the growth factor between consecutive retries. Default 2.
	Multiplier float64
	// JitterFactor is the relative spread applied to each wait, e.g. 0.1 for ±10%.
	JitterFactor float64
}

// NextInterval returns
//
//	min(InitialInterval * Multiplier^(attempt-1) * (1 ± JitterFactor), MaxInterval)
//
// With the defaults the waits are roughly 200ms, 400ms, 800ms, 1.6s, 3.2s and
// then 5s for every later retry.
func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := e.InitialInterval
	if initial == 0 {
		initial = 200 * time.Millisecond
	}
	maxInterval := e.MaxInterval
	if maxInterval == 0 {
		maxInterval = 5 * time.Second
	}
	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))

	if e.JitterFactor > 0 {
		// Uniform in [-JitterFactor, +JitterFactor].
		spread := (rand.Float64()*2 - 1) * e.JitterFactor
		interval *= 1 + spread
	}

	// Capped after jitter so MaxInterval is a hard upper bound.
	if interval > float64(maxInterval) {
		interval = float64(maxInterval)
	}
	return time.Duration(interval)
}

// FixedBackoff waits the same Interval before every retry. Tests use it with a
// tiny interval to exercise the retry loop without sleeping.
type FixedBackoff struct {
	// Interval is the wait before each retry. Zero retries immediately.
	Interval time.Duration
}

// NextInterval returns Interval for every attempt from 1 on.
func (f FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}

// DefaultBackoff returns the strategy a Client uses unless WithBackoff is given.
//
// Flushes and fetches run on the caller's path (GetTreatment fetches on a cache
// miss), so the waits stay short: with the default MaxRetries of 2 a failing call
// gives up after about 600ms of backoff plus the per-attempt timeouts.
func DefaultBackoff() BackoffStrategy {
	return ExponentialBackoff{
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2,
		JitterFactor:    0.1, // ±10%
	}
}
