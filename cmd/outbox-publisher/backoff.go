package main

import (
	"math/rand/v2"
	"time"
)

const (
	retryBaseDelay = 2 * time.Second
	maxRetryDelay  = 10 * time.Minute
	jitterWindow   = 250 * time.Millisecond
)

// retryDelay is the wait before a row's attempt n: 2s doubled per attempt,
// capped at ten minutes, plus jitter.
func retryDelay(attempt int) time.Duration {
	delay := retryBaseDelay
	for i := 1; i < attempt && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	return withJitter(min(delay, maxRetryDelay))
}

// nextBackoff doubles the loop's wait after a failed batch.
func nextBackoff(current, base, ceiling time.Duration) time.Duration {
	if current < base {
		current = base
	}
	return min(current*2, ceiling)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
