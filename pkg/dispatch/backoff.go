package dispatch

import "time"

const (
	// backoffStep is the per-attempt delay increment.
	backoffStep = 30 * time.Second

	// backoffCap bounds the delay regardless of attempt count.
	backoffCap = 10 * time.Minute
)

// retryBackoff returns the delay before the given retry. Monotonic in the
// attempt number and bounded: 30s, 60s, 90s... up to 10 minutes.
func retryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(attempt) * backoffStep
	if d > backoffCap {
		return backoffCap
	}
	return d
}
