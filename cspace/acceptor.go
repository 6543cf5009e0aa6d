package cspace

import (
	"math"
	"math/rand"
)

const (
	// BoltzmannK is the Boltzmann constant in kcal/(mol K).
	BoltzmannK = 0.0019872041

	// DefaultMMCTemperature is the starting temperature of an MMCAcceptor.
	DefaultMMCTemperature = 20.0

	// DefaultMMCTemperatureAdjRate scales the temperature after every uphill test.
	DefaultMMCTemperatureAdjRate = 0.1

	// DefaultFixedMMCAcceptDeltaE and DefaultFixedMMCAcceptProb define the fixed temperature
	// of a FixedMMCAcceptor: an uphill move of that energy is accepted with that probability.
	DefaultFixedMMCAcceptDeltaE = 10.0
	DefaultFixedMMCAcceptProb   = 0.10

	// DefaultGoalDistanceThreshold is how close to its target a DistanceAcceptor accepts.
	DefaultGoalDistanceThreshold = 0.2
)

// AlwaysAcceptor accepts every configuration.
type AlwaysAcceptor struct{}

// IsAcceptable implements Acceptor.
func (AlwaysAcceptor) IsAcceptable(*Cfg) (bool, error) {
	return true, nil
}

// AcceptorFunc adapts a predicate to an Acceptor.
type AcceptorFunc func(cfg *Cfg) bool

// IsAcceptable calls f(cfg).
func (f AcceptorFunc) IsAcceptable(cfg *Cfg) (bool, error) {
	return f(cfg), nil
}

// EnergyAcceptor accepts configurations whose energy is at most Threshold.
type EnergyAcceptor struct {
	Threshold float64
	Eval      EnergyEvaluator
}

// IsAcceptable implements Acceptor.
func (a *EnergyAcceptor) IsAcceptable(cfg *Cfg) (bool, error) {
	if a.Eval == nil {
		return false, NewPreconditionError("EnergyAcceptor.IsAcceptable", "no energy evaluator")
	}
	return a.Threshold >= EnsureEnergy(a.Eval, cfg), nil
}

// DistanceAcceptor accepts configurations within Threshold of Target. It is the usual goal test.
type DistanceAcceptor struct {
	Target    *Cfg
	Threshold float64
	Metric    Distance

	// closest distance seen that was still above the threshold
	minMiss float64
}

// NewDistanceAcceptor returns a DistanceAcceptor around target.
func NewDistanceAcceptor(target *Cfg, threshold float64, metric Distance) *DistanceAcceptor {
	return &DistanceAcceptor{Target: target, Threshold: threshold, Metric: metric, minMiss: math.Inf(1)}
}

// IsAcceptable implements Acceptor.
func (a *DistanceAcceptor) IsAcceptable(cfg *Cfg) (bool, error) {
	if a.Target == nil {
		return false, NewPreconditionError("DistanceAcceptor.IsAcceptable", "no target configuration")
	}
	if a.Metric == nil {
		return false, NewPreconditionError("DistanceAcceptor.IsAcceptable", "no distance metric")
	}
	d := a.Metric.Distance(cfg, a.Target)
	if d <= a.Threshold {
		return true, nil
	}
	if d < a.minMiss || a.minMiss == 0 {
		a.minMiss = d
	}
	return false, nil
}

// AcceptableExample returns the target.
func (a *DistanceAcceptor) AcceptableExample() *Cfg {
	return a.Target
}

// ClosestMiss returns the smallest rejected distance so far, +Inf if nothing was rejected.
func (a *DistanceAcceptor) ClosestMiss() float64 {
	if a.minMiss == 0 {
		return math.Inf(1)
	}
	return a.minMiss
}

// MMCStats counts Metropolis test outcomes and tracks the observed energy range.
type MMCStats struct {
	Passed, Failed       int
	MinEnergy, MaxEnergy float64
}

func (s *MMCStats) record(e float64, pass bool) {
	if s.Passed+s.Failed == 0 {
		s.MinEnergy, s.MaxEnergy = e, e
	}
	s.MinEnergy = math.Min(s.MinEnergy, e)
	s.MaxEnergy = math.Max(s.MaxEnergy, e)
	if pass {
		s.Passed++
	} else {
		s.Failed++
	}
}

// MMCAcceptor runs a Metropolis test of a configuration against the bound source with an
// adaptive temperature: every uphill rejection multiplies the temperature by the adjust rate
// and every acceptance divides it.
type MMCAcceptor struct {
	Temperature float64
	AdjRate     float64

	eval   EnergyEvaluator
	rng    *rand.Rand
	source *Cfg
	stats  MMCStats
}

// NewMMCAcceptor returns an MMCAcceptor with the default temperature and adjust rate.
func NewMMCAcceptor(eval EnergyEvaluator, rng *rand.Rand) *MMCAcceptor {
	return &MMCAcceptor{
		Temperature: DefaultMMCTemperature,
		AdjRate:     DefaultMMCTemperatureAdjRate,
		eval:        eval,
		rng:         rng,
	}
}

// BindSource implements SourceBinder.
func (a *MMCAcceptor) BindSource(src *Cfg) {
	a.source = src
}

// Stats returns the test counters.
func (a *MMCAcceptor) Stats() MMCStats {
	return a.stats
}

// IsAcceptable implements Acceptor.
func (a *MMCAcceptor) IsAcceptable(cfg *Cfg) (bool, error) {
	if a.source == nil {
		return false, errNoSource
	}
	e := EnsureEnergy(a.eval, cfg)
	deltaE := e - EnsureEnergy(a.eval, a.source)

	pass := true
	if deltaE > 0 {
		prob := math.Exp(-deltaE / (BoltzmannK * a.Temperature))
		if prob < a.rng.Float64() {
			pass = false
			a.Temperature *= a.AdjRate
		} else {
			a.Temperature /= a.AdjRate
		}
	} else {
		a.Temperature /= a.AdjRate
	}
	a.stats.record(e, pass)
	return pass, nil
}

// FixedMMCAcceptor runs a Metropolis test at a fixed temperature, chosen so that an uphill
// move of acceptDeltaE passes with probability acceptProb.
type FixedMMCAcceptor struct {
	temperature float64
	eval        EnergyEvaluator
	rng         *rand.Rand
	source      *Cfg
	stats       MMCStats
}

// NewFixedMMCAcceptor returns a FixedMMCAcceptor. acceptProb must lie in (0, 1).
func NewFixedMMCAcceptor(eval EnergyEvaluator, rng *rand.Rand, acceptDeltaE, acceptProb float64) (*FixedMMCAcceptor, error) {
	if acceptProb <= 0 || acceptProb >= 1 {
		return nil, NewPreconditionError("NewFixedMMCAcceptor", "accept probability must be in (0, 1)")
	}
	return &FixedMMCAcceptor{
		temperature: -acceptDeltaE / (BoltzmannK * math.Log(acceptProb)),
		eval:        eval,
		rng:         rng,
	}, nil
}

// Temperature returns the fixed temperature.
func (a *FixedMMCAcceptor) Temperature() float64 {
	return a.temperature
}

// BindSource implements SourceBinder.
func (a *FixedMMCAcceptor) BindSource(src *Cfg) {
	a.source = src
}

// Stats returns the test counters.
func (a *FixedMMCAcceptor) Stats() MMCStats {
	return a.stats
}

// IsAcceptable implements Acceptor.
func (a *FixedMMCAcceptor) IsAcceptable(cfg *Cfg) (bool, error) {
	if a.source == nil {
		return false, errNoSource
	}
	e := EnsureEnergy(a.eval, cfg)
	deltaE := e - EnsureEnergy(a.eval, a.source)

	pass := true
	if deltaE > 0 {
		pass = math.Exp(-deltaE/(BoltzmannK*a.temperature)) >= a.rng.Float64()
	}
	a.stats.record(e, pass)
	return pass, nil
}
