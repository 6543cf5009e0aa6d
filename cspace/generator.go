package cspace

import (
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"go.viam.com/planengine/utils"
)

// LinearInterpolation generates parent + step*(target-parent), with angular dimensions
// interpolated along the shorter arc when a metric with angular dimensions is given.
type LinearInterpolation struct {
	Metric *LpDistance
}

// InterpolatesToTarget implements TargetInterpolator.
func (LinearInterpolation) InterpolatesToTarget() bool {
	return true
}

// Generate implements OffspringGenerator.
func (g LinearInterpolation) Generate(_ *rand.Rand, parent, target, out *Cfg, step float64) error {
	if target == nil {
		return NewPreconditionError("LinearInterpolation.Generate", "no target configuration")
	}
	from, to := parent.Values(), target.Values()
	if len(to) != len(from) || out.Dim() != len(from) {
		return NewDimensionMismatchError(len(from), len(to))
	}
	for i := range from {
		diff := to[i] - from[i]
		if g.Metric != nil {
			diff = g.Metric.SignedDiff(i, from[i], to[i])
		}
		out.values[i] = from[i] + step*diff
	}
	out.energy = Unset
	return nil
}

// GaussianPerturbation copies the parent and perturbs between MinDims and MaxDims of its values
// with Gaussian noise whose standard deviation is the step. With Consecutive set the perturbed
// values form one contiguous run.
type GaussianPerturbation struct {
	MinDims     int
	MaxDims     int
	Consecutive bool
}

// Generate implements OffspringGenerator. target is ignored.
func (g GaussianPerturbation) Generate(rng *rand.Rand, parent, _, out *Cfg, step float64) error {
	dim := parent.Dim()
	if out.Dim() != dim {
		return NewDimensionMismatchError(dim, out.Dim())
	}
	maxDims := utils.ClampInt(g.MaxDims, 1, dim)
	minDims := utils.ClampInt(g.MinDims, 1, maxDims)
	n := utils.SampleRandomIntRange(minDims, maxDims, rng)

	copy(out.values, parent.values)
	out.energy = Unset
	if g.Consecutive {
		start := utils.SampleRandomIntRange(0, maxDims-n, rng)
		for i := start; i < start+n; i++ {
			out.values[i] = Gaussian(rng, parent.values[i], step)
		}
		return nil
	}
	perm := rng.Perm(dim)
	for _, i := range perm[:n] {
		out.values[i] = Gaussian(rng, parent.values[i], step)
	}
	return nil
}

// Gaussian draws from N(mu, sigma^2) using rng. A non-positive sigma returns mu.
func Gaussian(rng *rand.Rand, mu, sigma float64) float64 {
	if sigma <= 0 {
		return mu
	}
	u := rng.Float64()
	for u == 0 {
		u = rng.Float64()
	}
	return distuv.Normal{Mu: mu, Sigma: sigma}.Quantile(u)
}
