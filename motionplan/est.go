package motionplan

import (
	"context"

	"go.viam.com/planengine/cspace"
	"go.viam.com/planengine/utils/selector"
)

type estVertex struct {
	nsel   int
	nneigh int
	node   *selector.Node[int]
}

func (v *estVertex) weight() float64 {
	return 1 / float64(1+v.nsel+v.nneigh)
}

// estSelector favors vertices that have rarely been selected and have few vertices within
// est_neighborhood_radius, pushing the tree into sparsely explored space.
type estSelector struct {
	tp       *treePlanner
	radius   float64
	sel      *selector.Selector[int]
	vertices map[int]*estVertex
}

func newESTSelector(tp *treePlanner) (vertexSelector, error) {
	return &estSelector{
		tp:       tp,
		radius:   tp.planOpts.ESTNeighborhoodRadius,
		sel:      selector.New[int](),
		vertices: map[int]*estVertex{},
	}, nil
}

func (s *estSelector) admit(*cspace.Cfg) (bool, error) {
	return true, nil
}

func (s *estSelector) added(vid int) error {
	neighbors := s.tp.nn.withinRadius(s.tp.graph.Vertex(vid).Cfg, s.radius, vid)
	for _, n := range neighbors {
		if v, ok := s.vertices[n.vid]; ok {
			v.nneigh++
			s.sel.Update(v.node, v.weight())
		}
	}
	v := &estVertex{nneigh: len(neighbors)}
	v.node = s.sel.Create(vid, v.weight())
	s.sel.Insert(v.node)
	s.vertices[vid] = v
	return nil
}

func (s *estSelector) selectVertex(context.Context, *cspace.Cfg) (int, error) {
	node := s.sel.SelectRandom(s.tp.randseed)
	if node == nil {
		return -1, errEmptyIndex
	}
	v := s.vertices[node.Key()]
	v.nsel++
	s.sel.Update(v.node, v.weight())
	return node.Key(), nil
}
