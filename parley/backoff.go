package parley

import (
	"math"
	"math/rand"
	"time"
)

// BackoffPolicy computes the delay before a reconnection attempt using
// exponential growth capped at Max, with uniform random jitter added on top.
// Jitter is only ever added, never subtracted, so the exponential base acts
// as a floor and simultaneous clients do not retry in lockstep.
type BackoffPolicy struct {
	// Base is the delay before the first retry.
	Base time.Duration
	// Max caps the pre-jitter delay.
	Max time.Duration
	// Jitter is the maximum fraction of the capped delay added at random.
	Jitter float64

	// rng returns a value in [0, 1). Overridable in tests.
	rng func() float64
}

// Delay returns the wait before reconnection attempt number attempt.
// The first retry is attempt 0.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	d := float64(p.Base) * math.Pow(2, float64(attempt))
	if d > float64(p.Max) {
		d = float64(p.Max)
	}

	rng := p.rng
	if rng == nil {
		rng = rand.Float64
	}
	d += rng() * p.Jitter * d

	return time.Duration(d)
}
