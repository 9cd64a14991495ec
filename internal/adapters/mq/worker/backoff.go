package worker

import "time"

// Backoff returns base*2^(attempt-1) for attempt >= 1, capped at ceiling when
// ceiling is positive.
func Backoff(base time.Duration, attempt int, ceiling time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if ceiling > 0 && d >= ceiling {
			return ceiling
		}
	}
	if ceiling > 0 && d > ceiling {
		return ceiling
	}
	return d
}
