package transport

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig spaces out port open attempts.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	// Jitter scales each delay by a factor in [0.5, 1.5).
	Jitter bool
}

// Delay returns the wait after failed attempt n (1-based). A nil jitter
// source uses the global generator.
func (b BackoffConfig) Delay(n int, jitter func() float64) time.Duration {
	if b.InitialDelay <= 0 {
		return 0
	}
	mult := math.Max(b.Multiplier, 1)
	d := float64(b.InitialDelay) * math.Pow(mult, float64(max(n, 1)-1))
	if b.MaxDelay > 0 {
		d = math.Min(d, float64(b.MaxDelay))
	}
	if b.Jitter {
		if jitter == nil {
			jitter = rand.Float64
		}
		d *= 0.5 + jitter()
	}
	return time.Duration(d)
}
