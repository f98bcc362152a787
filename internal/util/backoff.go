// ABOUTME: Backoff utilities for retrying the generation API
// ABOUTME: Doubles the base delay per attempt, capped so a stalled upstream can't stall us
package util

import "time"

// MaxBackoff bounds a single wait between generation retries.
const MaxBackoff = 30 * time.Second

// Backoff returns the wait before retry number attempt (1-based).
// The delay doubles per attempt: base, 2*base, 4*base, capped at MaxBackoff.
// Attempt 0 (the first try) waits nothing.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	// Cap the shift to avoid overflow for absurd attempt counts.
	if attempt > 30 {
		attempt = 30
	}
	wait := base * time.Duration(1<<uint(attempt-1))
	if wait > MaxBackoff || wait <= 0 {
		wait = MaxBackoff
	}
	return wait
}
