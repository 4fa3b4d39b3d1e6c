package utils

import (
	"math"
	"time"
)

// SafeDiv divides num by den, returning 0 when the denominator is zero or
// either operand is not finite. Every division in the engine routes through
// here so NaN and Inf never leak into output.
func SafeDiv(num, den float64) float64 {
	if den == 0 || math.IsNaN(num) || math.IsInf(num, 0) || math.IsNaN(den) || math.IsInf(den, 0) {
		return 0
	}
	return num / den
}

// Clamp bounds value to [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Seconds converts a duration to float seconds for wire and formula use.
func Seconds(d time.Duration) float64 {
	return d.Seconds()
}

// DurationSeconds converts float seconds back into a duration.
func DurationSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// ScaleDuration multiplies a duration by a factor.
func ScaleDuration(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}
