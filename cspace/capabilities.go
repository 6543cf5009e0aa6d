package cspace

import "math/rand"

// Sampler fills cfg with a new sample. It returns false when no sample could be produced.
type Sampler interface {
	Sample(rng *rand.Rand, cfg *Cfg) bool
}

// Improver refines a configuration in place, for example by local minimization.
type Improver interface {
	Improve(cfg *Cfg)
}

// Acceptor decides whether a configuration is admissible. Acceptors double as goal tests.
type Acceptor interface {
	IsAcceptable(cfg *Cfg) (bool, error)
}

// ExampleProvider is implemented by acceptors that can produce a configuration they accept,
// which planners use for goal-biased sampling.
type ExampleProvider interface {
	AcceptableExample() *Cfg
}

// SourceBinder is implemented by components whose decision is relative to a source
// configuration, such as Metropolis acceptance tests. Planners rebind the source before every
// use.
type SourceBinder interface {
	BindSource(src *Cfg)
}

// Distance measures how far apart two configurations are.
type Distance interface {
	Distance(a, b *Cfg) float64
}

// OffspringGenerator writes into out a configuration derived from parent. When the generator
// is a TargetInterpolator, step is the fraction in [0,1] of the way toward target; otherwise
// target may be nil and step is a free magnitude.
type OffspringGenerator interface {
	Generate(rng *rand.Rand, parent, target, out *Cfg, step float64) error
}

// TargetInterpolator is implemented by offspring generators that move toward a target.
type TargetInterpolator interface {
	InterpolatesToTarget() bool
}

// EdgeCostEvaluator returns the cost of moving from one configuration to another and the cost
// of the reverse move.
type EdgeCostEvaluator interface {
	Costs(from, to *Cfg) (forward, reverse float64)
}

// Projector maps a configuration to a low dimensional point used by grid based strategies.
type Projector interface {
	Dim() int
	Project(cfg *Cfg) []float64
}

// BoundedProjector is a Projector that knows the box its projections fall in. The bounds may
// cover only a prefix of the projection axes.
type BoundedProjector interface {
	Projector
	ProjectionBounds() (min, max []float64)
}

// EnergyEvaluator computes the energy of a configuration.
type EnergyEvaluator interface {
	Energy(cfg *Cfg) float64
}

// EnergyFunc adapts a function to an EnergyEvaluator.
type EnergyFunc func(cfg *Cfg) float64

// Energy calls f(cfg).
func (f EnergyFunc) Energy(cfg *Cfg) float64 {
	return f(cfg)
}

// EnsureEnergy evaluates and caches the energy of cfg unless already set.
func EnsureEnergy(eval EnergyEvaluator, cfg *Cfg) float64 {
	if !cfg.HasEnergy() {
		cfg.SetEnergy(eval.Energy(cfg))
	}
	return cfg.Energy()
}

// Problem bundles the capabilities a planner is built from.
type Problem struct {
	Factory   *Factory
	Sampler   Sampler
	Improver  Improver
	Acceptor  Acceptor
	Goal      Acceptor
	Distance  Distance
	Generator OffspringGenerator
	EdgeCost  EdgeCostEvaluator
	// Projector is required by grid and region based strategies only.
	Projector Projector
	// Energy is required by energy region strategies only, which also hand it to an
	// EnergyProjector built without an evaluator.
	Energy EnergyEvaluator
}

// Validate checks that the capabilities every planner needs are present.
func (p *Problem) Validate() error {
	missing := ""
	switch {
	case p.Factory == nil:
		missing = "factory"
	case p.Sampler == nil:
		missing = "sampler"
	case p.Acceptor == nil:
		missing = "acceptor"
	case p.Goal == nil:
		missing = "goal acceptor"
	case p.Distance == nil:
		missing = "distance"
	case p.Generator == nil:
		missing = "offspring generator"
	case p.EdgeCost == nil:
		missing = "edge cost evaluator"
	}
	if missing != "" {
		return NewPreconditionError("Problem.Validate", "missing "+missing)
	}
	return nil
}
