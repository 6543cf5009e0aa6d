package cspace

// PrefixProjector keeps the first Dims values of a configuration.
type PrefixProjector struct {
	Dims int
}

// Dim implements Projector.
func (p PrefixProjector) Dim() int {
	return p.Dims
}

// Project implements Projector.
func (p PrefixProjector) Project(cfg *Cfg) []float64 {
	out := make([]float64, p.Dims)
	copy(out, cfg.Values())
	return out
}

// EnergyProjector appends the energy of the configuration as the last axis of an inner
// projection.
type EnergyProjector struct {
	Inner Projector
	Eval  EnergyEvaluator
}

// Dim implements Projector.
func (p EnergyProjector) Dim() int {
	return p.Inner.Dim() + 1
}

// Project implements Projector.
func (p EnergyProjector) Project(cfg *Cfg) []float64 {
	return append(p.Inner.Project(cfg), EnsureEnergy(p.Eval, cfg))
}

// ProjectionBounds reports the bounds of the inner projection, if it has any. The energy axis
// is unbounded.
func (p EnergyProjector) ProjectionBounds() ([]float64, []float64) {
	if b, ok := p.Inner.(BoundedProjector); ok {
		return b.ProjectionBounds()
	}
	return nil, nil
}
