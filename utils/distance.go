package utils

import (
	"errors"

	"gonum.org/v1/gonum/floats"
)

var errLengthMismatch = errors.New("must have same length")

// LpDistance computes the Lp distance between two vectors given a per-coordinate signed
// difference. A nil diff uses plain subtraction. Exponent must be positive; +Inf gives the
// maximum norm.
func LpDistance(p1, p2 []float64, exponent float64, diff func(i int, a, b float64) float64) (float64, error) {
	if len(p1) != len(p2) {
		return -1, errLengthMismatch
	}
	if diff == nil {
		return floats.Distance(p1, p2, exponent), nil
	}
	deltas := make([]float64, len(p1))
	for i := range p1 {
		deltas[i] = diff(i, p1[i], p2[i])
	}
	return floats.Norm(deltas, exponent), nil
}

// SignedAngleDiff returns the signed shortest angular difference b-a in (-pi, pi].
func SignedAngleDiff(a, b float64) float64 {
	return WrapAngle(b - a)
}
