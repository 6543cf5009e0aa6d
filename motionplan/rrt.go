package motionplan

import (
	"context"

	"go.viam.com/planengine/cspace"
)

// rrtSelector extends the vertex nearest to the target, which biases growth toward the largest
// Voronoi regions of the tree.
type rrtSelector struct {
	tp *treePlanner
}

func newRRTSelector(tp *treePlanner) (vertexSelector, error) {
	return &rrtSelector{tp: tp}, nil
}

func (s *rrtSelector) selectVertex(ctx context.Context, target *cspace.Cfg) (int, error) {
	nn, err := s.tp.nn.nearest(ctx, target)
	if err != nil {
		return -1, err
	}
	return nn.vid, nil
}
