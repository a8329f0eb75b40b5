package ordersync

import (
	"math/rand/v2"
	"time"
)

const (
	// DefaultInterval is the poll period used when none is given.
	DefaultInterval = 30 * time.Second
	// DefaultMaxBackoff caps the wait after repeated poll failures.
	DefaultMaxBackoff = 5 * time.Minute
	// DefaultJitter spreads polls by ±10% so open watchers drift apart.
	DefaultJitter = 0.1
)

// calculateBackoff doubles base for each consecutive failure, capped at max.
// The cap never drops below base.
func calculateBackoff(failures int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = DefaultInterval
	}
	if max < base {
		max = base
	}
	if failures <= 0 {
		return base
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= max || wait <= 0 {
			return max
		}
	}
	return wait
}

// applyJitter moves d by up to ±frac of itself. r must return values in
// [0, 1); a nil r uses math/rand.
func applyJitter(d time.Duration, frac float64, r func() float64) time.Duration {
	if frac <= 0 || d <= 0 {
		return d
	}
	if frac > 1 {
		frac = 1
	}
	if r == nil {
		r = rand.Float64
	}
	spread := float64(d) * frac
	offset := (r()*2 - 1) * spread
	out := time.Duration(float64(d) + offset)
	if out <= 0 {
		return time.Millisecond
	}
	return out
}
