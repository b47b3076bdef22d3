package realtime

import (
	"math"
	"time"
)

// RetryPolicy describes the reconnect schedule for the event stream:
// exponentially growing delays with a hard ceiling on the number of
// attempts. It is a plain value so it can be exercised without sockets
// or timers.
type RetryPolicy struct {
	BaseDelay  time.Duration
	Multiplier float64
	Ceiling    int
}

// DefaultRetryPolicy matches the dashboard's observed behavior: delays of
// 1s, 2s, 4s, ... and no more than 15 reconnect attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:  time.Second,
		Multiplier: 2,
		Ceiling:    15,
	}
}

// DelayFor returns the delay before reconnect attempt number attempt,
// counted from zero.
func (p RetryPolicy) DelayFor(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt)))
}

// ShouldRetry reports whether another reconnect is allowed after attempt
// attempts have already been made.
func (p RetryPolicy) ShouldRetry(attempt int) bool {
	return attempt < p.Ceiling
}
