package cspace

import (
	"math"
	"math/rand"
)

// UniformSampler draws every value uniformly from its [Min, Max] range.
type UniformSampler struct {
	Min, Max []float64
}

// NewUniformSampler returns a sampler over the box [min, max].
func NewUniformSampler(min, max []float64) (*UniformSampler, error) {
	if len(min) != len(max) {
		return nil, NewDimensionMismatchError(len(min), len(max))
	}
	for i := range min {
		if min[i] > max[i] {
			return nil, NewPreconditionError("NewUniformSampler", "min exceeds max")
		}
	}
	return &UniformSampler{Min: min, Max: max}, nil
}

// NewJointSampler returns a sampler over [-pi, pi] in every one of dim dimensions.
func NewJointSampler(dim int) *UniformSampler {
	s := &UniformSampler{Min: make([]float64, dim), Max: make([]float64, dim)}
	for i := 0; i < dim; i++ {
		s.Min[i] = -math.Pi
		s.Max[i] = math.Pi
	}
	return s
}

// Sample implements Sampler.
func (s *UniformSampler) Sample(rng *rand.Rand, cfg *Cfg) bool {
	if cfg.Dim() != len(s.Min) {
		return false
	}
	for i := range s.Min {
		cfg.Set(i, s.Min[i]+rng.Float64()*(s.Max[i]-s.Min[i]))
	}
	return true
}

// NoopImprover leaves configurations untouched.
type NoopImprover struct{}

// Improve implements Improver.
func (NoopImprover) Improve(*Cfg) {}
