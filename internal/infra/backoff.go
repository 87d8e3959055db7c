package infra

import (
	"math"
	"time"
)

// CalculateBackoff returns the delay before reconnect attempt retryCount (0-based):
// base * 2^retryCount, capped at max.
func CalculateBackoff(retryCount int, base, max time.Duration) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	// Cap the exponent so the multiplication cannot overflow
	if retryCount > 30 {
		return max
	}
	delay := base * time.Duration(math.Pow(2, float64(retryCount)))
	if delay > max || delay <= 0 {
		delay = max
	}
	return delay
}
