package utils

import (
	"math"
	"math/rand"
)

// MaxInt returns the maximum of two ints.
func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// MinInt returns the minimum of two ints.
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ClampInt restricts n to the closed range [low, high].
func ClampInt(n, low, high int) int {
	return MaxInt(low, MinInt(n, high))
}

// FloorClampInt returns floor(x) restricted to [low, high]. The clamp happens before the
// conversion, so infinities and out of range values are safe; NaN maps to high.
func FloorClampInt(x float64, low, high int) int {
	f := math.Floor(x)
	switch {
	case math.IsNaN(f) || f >= float64(high):
		return high
	case f <= float64(low):
		return low
	}
	return int(f)
}

// SampleRandomIntRange samples a random integer within a range given by [min, max]
// using the given rand.Rand.
func SampleRandomIntRange(min, max int, r *rand.Rand) int {
	return r.Intn(max-min+1) + min
}

// WrapAngle maps an angle in radians to (-pi, pi].
func WrapAngle(rad float64) float64 {
	rad = math.Mod(rad, 2*math.Pi)
	switch {
	case rad > math.Pi:
		rad -= 2 * math.Pi
	case rad <= -math.Pi:
		rad += 2 * math.Pi
	}
	return rad
}
