package cspace

// DistanceCost charges the distance between configurations in both directions.
type DistanceCost struct {
	Metric Distance
}

// Costs implements EdgeCostEvaluator.
func (c DistanceCost) Costs(from, to *Cfg) (float64, float64) {
	d := c.Metric.Distance(from, to)
	return d, d
}

// EnergyCost charges the energy difference: moving uphill costs what moving downhill gains.
type EnergyCost struct {
	Eval EnergyEvaluator
}

// Costs implements EdgeCostEvaluator.
func (c EnergyCost) Costs(from, to *Cfg) (float64, float64) {
	d := EnsureEnergy(c.Eval, to) - EnsureEnergy(c.Eval, from)
	return d, -d
}

// EvaluatePath sums the costs of the legs from -> intermediates... -> to.
func EvaluatePath(eval EdgeCostEvaluator, from, to *Cfg, intermediates []*Cfg) (float64, float64) {
	var fwd, rev float64
	prev := from
	for _, next := range intermediates {
		f, r := eval.Costs(prev, next)
		fwd += f
		rev += r
		prev = next
	}
	f, r := eval.Costs(prev, to)
	return fwd + f, rev + r
}
