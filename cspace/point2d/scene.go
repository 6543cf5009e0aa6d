// Package point2d is a planar point robot among axis aligned rectangular obstacles. It provides
// the sampler, acceptor and projector a planner needs for a 2-dimensional configuration space.
package point2d

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r2"

	"go.viam.com/planengine/cspace"
)

// Scene is a rectangular workspace with rectangular obstacles.
type Scene struct {
	Bounds    r2.Rect
	Obstacles []r2.Rect
}

// NewScene returns a scene spanning lo to hi.
func NewScene(lo, hi r2.Point, obstacles ...r2.Rect) *Scene {
	return &Scene{Bounds: r2.RectFromPoints(lo, hi), Obstacles: obstacles}
}

// NewObstacle returns the rectangle centered at center with the given size.
func NewObstacle(center, size r2.Point) r2.Rect {
	return r2.RectFromCenterSize(center, size)
}

// Point returns the position encoded by a 2-dimensional configuration.
func Point(cfg *cspace.Cfg) r2.Point {
	return r2.Point{X: cfg.At(0), Y: cfg.At(1)}
}

// Free reports whether p is inside the workspace and outside every obstacle.
func (s *Scene) Free(p r2.Point) bool {
	if !s.Bounds.ContainsPoint(p) {
		return false
	}
	for _, o := range s.Obstacles {
		if o.ContainsPoint(p) {
			return false
		}
	}
	return true
}

// SegmentFree checks points along the segment a-b every resolution units.
func (s *Scene) SegmentFree(a, b r2.Point, resolution float64) bool {
	d := b.Sub(a).Norm()
	steps := int(math.Ceil(d / resolution))
	for i := 0; i <= steps; i++ {
		t := 1.0
		if steps > 0 {
			t = float64(i) / float64(steps)
		}
		if !s.Free(a.Add(b.Sub(a).Mul(t))) {
			return false
		}
	}
	return true
}

// Sample implements cspace.Sampler with uniform samples over the workspace.
func (s *Scene) Sample(rng *rand.Rand, cfg *cspace.Cfg) bool {
	if cfg.Dim() != 2 {
		return false
	}
	lo, hi := s.Bounds.Lo(), s.Bounds.Hi()
	cfg.SetValues([]float64{
		lo.X + rng.Float64()*(hi.X-lo.X),
		lo.Y + rng.Float64()*(hi.Y-lo.Y),
	})
	return true
}

// IsAcceptable implements cspace.Acceptor: a configuration is acceptable when it is collision free.
func (s *Scene) IsAcceptable(cfg *cspace.Cfg) (bool, error) {
	if cfg.Dim() != 2 {
		return false, cspace.NewDimensionMismatchError(2, cfg.Dim())
	}
	return s.Free(Point(cfg)), nil
}

// Dim implements cspace.Projector.
func (s *Scene) Dim() int {
	return 2
}

// Project implements cspace.Projector.
func (s *Scene) Project(cfg *cspace.Cfg) []float64 {
	return []float64{cfg.At(0), cfg.At(1)}
}

// ProjectionBounds returns the lower and upper corners of the workspace as projection bounds.
func (s *Scene) ProjectionBounds() ([]float64, []float64) {
	lo, hi := s.Bounds.Lo(), s.Bounds.Hi()
	return []float64{lo.X, lo.Y}, []float64{hi.X, hi.Y}
}
