package cspace

import (
	"github.com/samber/lo"

	"go.viam.com/planengine/utils"
)

// LpDistance is the Lp norm of the per-dimension signed differences. Differences along angular
// dimensions wrap around to (-pi, pi].
type LpDistance struct {
	exponent float64
	angular  map[int]bool
}

// NewLpDistance returns an Lp distance. angularDims lists the dimensions holding angles.
func NewLpDistance(exponent float64, angularDims ...int) *LpDistance {
	return &LpDistance{
		exponent: exponent,
		angular:  lo.SliceToMap(angularDims, func(d int) (int, bool) { return d, true }),
	}
}

// Exponent returns p.
func (d *LpDistance) Exponent() float64 {
	return d.exponent
}

// IsEuclidean reports whether the distance is plain L2 with no angular dimensions.
func (d *LpDistance) IsEuclidean() bool {
	return d.exponent == 2 && len(d.angular) == 0
}

// SignedDiff returns the signed difference b-a along dimension i.
func (d *LpDistance) SignedDiff(i int, a, b float64) float64 {
	if d.angular[i] {
		return utils.SignedAngleDiff(a, b)
	}
	return b - a
}

// Distance implements Distance.
func (d *LpDistance) Distance(a, b *Cfg) float64 {
	var diff func(int, float64, float64) float64
	if len(d.angular) > 0 {
		diff = d.SignedDiff
	}
	dist, err := utils.LpDistance(a.Values(), b.Values(), d.exponent, diff)
	if err != nil {
		panic(err)
	}
	return dist
}
